package core

import (
	"context"
	"encoding/json"
)

// Logger defines the logging interface used across the application.
// Injected as a dependency so tests can use NopLogger.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Fatal(format string, args ...any)
}

// Store is the keyed-record persistence backend for builder state,
// per-user memory and analytics events. Payloads are opaque JSON blobs;
// the store never inspects them.
type Store interface {
	SaveBuilderState(ctx context.Context, bot string, state json.RawMessage) error
	LoadBuilderState(ctx context.Context, bot string) (json.RawMessage, error)
	SaveMemory(ctx context.Context, userID string, memory json.RawMessage) error
	LoadMemory(ctx context.Context, userID string) (json.RawMessage, error)
	InsertEvent(ctx context.Context, event *AnalyticsEvent) error
	RecentEvents(ctx context.Context, limit int) ([]AnalyticsEvent, error)
	Close() error
}

// MetricsCollector records per-request outcomes for the stats endpoint.
type MetricsCollector interface {
	RecordRequest(success bool, responseTimeMs int64, route string)
}

// NopLogger empty logger implementation
type NopLogger struct{}

func (*NopLogger) Debug(format string, args ...any) {}
func (*NopLogger) Info(format string, args ...any)  {}
func (*NopLogger) Warn(format string, args ...any)  {}
func (*NopLogger) Error(format string, args ...any) {}
func (*NopLogger) Fatal(format string, args ...any) {}

// Interface compliance checks
var _ Logger = (*NopLogger)(nil)

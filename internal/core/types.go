package core

import (
	"encoding/json"
	"time"
)

// Model represents a single upstream model entry.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ModelsResult is the outcome of a model listing call. Exactly one of
// the three flag combinations applies: fresh (no flags), cached, or
// fallback (optionally degraded when the upstream was unreachable
// rather than merely unhappy).
type ModelsResult struct {
	Models   []Model `json:"models"`
	Cached   bool    `json:"cached,omitempty"`
	Fallback bool    `json:"fallback,omitempty"`
	Degraded bool    `json:"degraded,omitempty"`
}

// ChatRequest is the inbound chat relay payload. Transient, never persisted.
type ChatRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Persona string `json:"persona"`
}

// AutomationRequest is the inbound automation trigger payload.
// Text is deliberately uncapped, unlike ChatRequest.Prompt.
type AutomationRequest struct {
	Text    string `json:"text"`
	Model   string `json:"model"`
	Persona string `json:"persona"`
	UserID  string `json:"userId"`
}

// ChatMessage is a single message in the upstream completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UpstreamChatRequest is the payload sent to the completions provider.
type UpstreamChatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []ChatMessage `json:"messages"`
}

// UpstreamModelsResponse is the shape of the upstream model catalog.
// Entries carry more fields upstream; only id and name are projected.
type UpstreamModelsResponse struct {
	Data []UpstreamModel `json:"data"`
}

// UpstreamModel is a single raw catalog entry.
type UpstreamModel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UpstreamCompletionResponse is the non-streamed completion response,
// reduced to the fields the automation trigger reads.
type UpstreamCompletionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// AnalyticsEvent is a single append-only analytics record.
type AnalyticsEvent struct {
	ID        string          `json:"id,omitempty"`
	EventType string          `json:"event_type"`
	UserID    string          `json:"user_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	NodeID    string          `json:"node_id,omitempty"`
	Meta      json.RawMessage `json:"meta,omitempty"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

// AnalyticsSummary is the folded view over the most recent events.
type AnalyticsSummary struct {
	Messages int            `json:"messages"`
	Users    int            `json:"users"`
	Dropoff  int            `json:"dropoff"`
	ByNode   map[string]int `json:"byNode"`
}

// RequestStats holds aggregated request statistics for monitoring.
type RequestStats struct {
	TotalRequests      int64            `json:"total_requests"`
	SuccessfulRequests int64            `json:"successful_requests"`
	FailedRequests     int64            `json:"failed_requests"`
	TotalResponseTime  int64            `json:"total_response_time"`
	LastRequestTime    time.Time        `json:"last_request_time"`
	ByRoute            map[string]int64 `json:"by_route"`
}

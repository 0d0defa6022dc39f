package store

import (
	"context"
	"encoding/json"
	"fmt"

	"botgateway/internal/core"
	"botgateway/internal/util"

	"github.com/redis/go-redis/v9"
)

// Redis key layout
const (
	redisBuilderKeyPrefix = "botgateway:builder:"
	redisMemoryKeyPrefix  = "botgateway:memory:"
	redisEventsKey        = "botgateway:events"
)

// RedisStore implements the keyed-record store on Redis, for
// deployments without a Supabase project. Builder state and memory are
// plain keys; analytics events are a capped list, newest first.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// SaveBuilderState stores a builder flow definition keyed by bot name.
func (s *RedisStore) SaveBuilderState(ctx context.Context, bot string, state json.RawMessage) error {
	return s.client.Set(ctx, redisBuilderKeyPrefix+bot, []byte(state), 0).Err()
}

// LoadBuilderState returns the stored flow for a bot, nil when absent.
func (s *RedisStore) LoadBuilderState(ctx context.Context, bot string) (json.RawMessage, error) {
	val, err := s.client.Get(ctx, redisBuilderKeyPrefix+bot).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return json.RawMessage(val), nil
}

// SaveMemory stores per-user memory keyed by user ID.
func (s *RedisStore) SaveMemory(ctx context.Context, userID string, memory json.RawMessage) error {
	return s.client.Set(ctx, redisMemoryKeyPrefix+userID, []byte(memory), 0).Err()
}

// LoadMemory returns the stored memory blob for a user, nil when absent.
func (s *RedisStore) LoadMemory(ctx context.Context, userID string) (json.RawMessage, error) {
	val, err := s.client.Get(ctx, redisMemoryKeyPrefix+userID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return json.RawMessage(val), nil
}

// InsertEvent prepends an analytics event and trims the list to the
// summary scan window.
func (s *RedisStore) InsertEvent(ctx context.Context, event *core.AnalyticsEvent) error {
	payload, err := util.MarshalJSON(event)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, redisEventsKey, payload)
	pipe.LTrim(ctx, redisEventsKey, 0, core.AnalyticsScanLimit-1)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentEvents returns up to limit events, newest first.
func (s *RedisStore) RecentEvents(ctx context.Context, limit int) ([]core.AnalyticsEvent, error) {
	raw, err := s.client.LRange(ctx, redisEventsKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]core.AnalyticsEvent, 0, len(raw))
	for _, item := range raw {
		var event core.AnalyticsEvent
		if err := util.UnmarshalJSON([]byte(item), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

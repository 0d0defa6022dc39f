package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"botgateway/internal/core"
	"botgateway/internal/util"
)

// Supabase table names. Row-level security is enforced store-side; this
// client only ever uses the anon key.
const (
	tableBuilderStates = "builder_states"
	tableMemories      = "bot_memories"
	tableEvents        = "bot_events"
)

// SupabaseStore is a thin passthrough to the Supabase PostgREST API.
// No business logic lives here: upserts use the store's own conflict
// resolution and reads are filtered selects.
type SupabaseStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewSupabaseStore creates a store client. A nil httpClient gets a
// default with a modest timeout; store calls are never streamed.
func NewSupabaseStore(projectURL, apiKey string, client *http.Client) *SupabaseStore {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SupabaseStore{
		baseURL: strings.TrimRight(projectURL, "/") + "/rest/v1",
		apiKey:  apiKey,
		client:  client,
	}
}

func (s *SupabaseStore) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set(core.HeaderAuthorization, core.AuthBearerPrefix+s.apiKey)
	req.Header.Set(core.HeaderContentType, core.ContentTypeJSON)
	return req, nil
}

// upsert POSTs rows with merge-duplicates conflict resolution.
func (s *SupabaseStore) upsert(ctx context.Context, table, conflictColumn string, rows any) error {
	payload, err := util.MarshalJSON(rows)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/%s?on_conflict=%s", table, url.QueryEscape(conflictColumn))
	req, err := s.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	return s.do(req, nil)
}

// selectRows GETs rows and decodes the JSON array response into out.
func (s *SupabaseStore) selectRows(ctx context.Context, path string, out any) error {
	req, err := s.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return s.do(req, out)
}

func (s *SupabaseStore) do(req *http.Request, out any) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, core.MaxResponseBodySize))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("store returned status %d", resp.StatusCode)
	}

	if out != nil && len(body) > 0 {
		return util.UnmarshalJSON(body, out)
	}
	return nil
}

// SaveBuilderState upserts a builder flow definition keyed by bot name.
func (s *SupabaseStore) SaveBuilderState(ctx context.Context, bot string, state json.RawMessage) error {
	rows := []map[string]any{{
		"bot":        bot,
		"state":      state,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}}
	return s.upsert(ctx, tableBuilderStates, "bot", rows)
}

// LoadBuilderState returns the stored flow for a bot, nil when absent.
func (s *SupabaseStore) LoadBuilderState(ctx context.Context, bot string) (json.RawMessage, error) {
	path := fmt.Sprintf("/%s?select=state&bot=eq.%s&limit=1", tableBuilderStates, url.QueryEscape(bot))

	var rows []struct {
		State json.RawMessage `json:"state"`
	}
	if err := s.selectRows(ctx, path, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].State, nil
}

// SaveMemory upserts per-user memory keyed by user ID.
func (s *SupabaseStore) SaveMemory(ctx context.Context, userID string, memory json.RawMessage) error {
	rows := []map[string]any{{
		"user_id":    userID,
		"memory":     memory,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}}
	return s.upsert(ctx, tableMemories, "user_id", rows)
}

// LoadMemory returns the stored memory blob for a user, nil when absent.
func (s *SupabaseStore) LoadMemory(ctx context.Context, userID string) (json.RawMessage, error) {
	path := fmt.Sprintf("/%s?select=memory&user_id=eq.%s&limit=1", tableMemories, url.QueryEscape(userID))

	var rows []struct {
		Memory json.RawMessage `json:"memory"`
	}
	if err := s.selectRows(ctx, path, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].Memory, nil
}

// InsertEvent appends an analytics event.
func (s *SupabaseStore) InsertEvent(ctx context.Context, event *core.AnalyticsEvent) error {
	payload, err := util.MarshalJSON([]*core.AnalyticsEvent{event})
	if err != nil {
		return err
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/"+tableEvents, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")

	return s.do(req, nil)
}

// RecentEvents returns up to limit events, newest first.
func (s *SupabaseStore) RecentEvents(ctx context.Context, limit int) ([]core.AnalyticsEvent, error) {
	path := fmt.Sprintf("/%s?select=*&order=created_at.desc&limit=%d", tableEvents, limit)

	var events []core.AnalyticsEvent
	if err := s.selectRows(ctx, path, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Close is a no-op: the store holds no persistent connections.
func (s *SupabaseStore) Close() error {
	return nil
}

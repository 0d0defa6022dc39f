package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"botgateway/internal/config"
	"botgateway/internal/core"
)

type fakeStore struct {
	builder map[string]json.RawMessage
	memory  map[string]json.RawMessage
	events  []core.AnalyticsEvent
	failAll bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		builder: make(map[string]json.RawMessage),
		memory:  make(map[string]json.RawMessage),
	}
}

func (f *fakeStore) SaveBuilderState(_ context.Context, bot string, state json.RawMessage) error {
	if f.failAll {
		return fmt.Errorf("store is down")
	}
	f.builder[bot] = state
	return nil
}

func (f *fakeStore) LoadBuilderState(_ context.Context, bot string) (json.RawMessage, error) {
	if f.failAll {
		return nil, fmt.Errorf("store is down")
	}
	return f.builder[bot], nil
}

func (f *fakeStore) SaveMemory(_ context.Context, userID string, memory json.RawMessage) error {
	if f.failAll {
		return fmt.Errorf("store is down")
	}
	f.memory[userID] = memory
	return nil
}

func (f *fakeStore) LoadMemory(_ context.Context, userID string) (json.RawMessage, error) {
	if f.failAll {
		return nil, fmt.Errorf("store is down")
	}
	return f.memory[userID], nil
}

func (f *fakeStore) InsertEvent(_ context.Context, event *core.AnalyticsEvent) error {
	if f.failAll {
		return fmt.Errorf("store is down")
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeStore) RecentEvents(_ context.Context, limit int) ([]core.AnalyticsEvent, error) {
	if f.failAll {
		return nil, fmt.Errorf("store is down")
	}
	if len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeStore) Close() error { return nil }

func testConfig(upstreamURL string) *config.Config {
	return &config.Config{
		Port:               "0",
		GinMode:            "test",
		APIKey:             "test-key",
		BaseURL:            upstreamURL,
		CacheTTL:           5 * time.Minute,
		ChatTimeout:        2 * time.Second,
		AllowedOrigins:     []string{core.CORSOriginAny},
		HTTPClientSettings: config.DefaultHTTPClientSettings(),
	}
}

func newTestServer(t *testing.T, cfg *config.Config, st core.Store) *Server {
	t.Helper()

	s, err := NewServer(cfg, &core.NopLogger{}, st)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(core.HeaderContentType, core.ContentTypeJSON)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig("http://invalid.localhost"), nil)

	w := doJSON(t, s, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["ok"] != true || body["service"] != core.ServiceName {
		t.Errorf("body = %v", body)
	}
}

func TestCORS_PreflightAndEcho(t *testing.T) {
	cfg := testConfig("http://invalid.localhost")
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	s := newTestServer(t, cfg, nil)

	// Preflight answers headers only.
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set(core.HeaderOrigin, "https://app.example.com")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allowed origin should be echoed, got %q", got)
	}
	if w.Body.Len() != 0 {
		t.Errorf("preflight must have no body, got %q", w.Body.String())
	}

	// Unlisted origin with no wildcard configured gets the null sentinel.
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(core.HeaderOrigin, "https://evil.example.com")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != core.CORSOriginNull {
		t.Errorf("unlisted origin = %q, want %q", got, core.CORSOriginNull)
	}
}

func TestCORS_WildcardDefault(t *testing.T) {
	s := newTestServer(t, testConfig("http://invalid.localhost"), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(core.HeaderOrigin, "https://anywhere.example.com")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != core.CORSOriginAny {
		t.Errorf("wildcard config should answer *, got %q", got)
	}
}

func TestChat_ValidationError(t *testing.T) {
	s := newTestServer(t, testConfig("http://invalid.localhost"), nil)

	w := doJSON(t, s, http.MethodPost, "/api/chat", `{"prompt":"hello"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decodeBody(t, w)
	if body["code"] != core.ErrCodeMalformedRequest {
		t.Errorf("code = %v", body["code"])
	}
	if body["error"] != "model is required" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestChat_StreamPassthrough(t *testing.T) {
	chunks := []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n",
		"data: [DONE]\n\n",
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(core.HeaderContentType, core.ContentTypeEventStream)
		flusher := w.(http.Flusher)
		for _, chunk := range chunks {
			fmt.Fprint(w, chunk)
			flusher.Flush()
		}
	}))
	t.Cleanup(upstream.Close)

	s := newTestServer(t, testConfig(upstream.URL), nil)

	w := doJSON(t, s, http.MethodPost, "/api/chat", `{"model":"openrouter/auto","prompt":"hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d\n%s", w.Code, w.Body.String())
	}
	if got := w.Header().Get(core.HeaderContentType); got != core.ContentTypeEventStream {
		t.Errorf("content type = %q", got)
	}
	if w.Body.String() != strings.Join(chunks, "") {
		t.Errorf("stream not byte-identical:\n%q", w.Body.String())
	}
}

func TestChat_UpstreamStatusPropagates(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	t.Cleanup(upstream.Close)

	s := newTestServer(t, testConfig(upstream.URL), nil)

	w := doJSON(t, s, http.MethodPost, "/api/chat", `{"model":"nope","prompt":"hi"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	body := decodeBody(t, w)
	if body["code"] != core.ErrCodeUpstreamError {
		t.Errorf("code = %v", body["code"])
	}
	if strings.Contains(w.Body.String(), "model not found") {
		t.Error("upstream body must not be echoed to the client")
	}
}

func TestModelsEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"openai/gpt-4o-mini","name":"GPT-4o mini"}]}`)
	}))
	t.Cleanup(upstream.Close)

	s := newTestServer(t, testConfig(upstream.URL), nil)

	w := doJSON(t, s, http.MethodGet, "/api/models", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var result core.ModelsResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Models) != 1 || result.Models[0].ID != "openai/gpt-4o-mini" {
		t.Errorf("models = %+v", result.Models)
	}
	if result.Fallback || result.Cached {
		t.Errorf("fresh fetch should carry no flags: %+v", result)
	}
}

func TestBuilderState_RoundTrip(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(t, testConfig("http://invalid.localhost"), st)

	w := doJSON(t, s, http.MethodPost, "/api/builder/state",
		`{"bot":"faq-bot","state":{"nodes":[{"id":"start"}]}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d\n%s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["ok"] != true {
		t.Fatalf("save not ok: %s", w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/api/builder/state?bot=faq-bot", "")
	body := decodeBody(t, w)
	if body["ok"] != true {
		t.Fatalf("load not ok: %s", w.Body.String())
	}
	state, _ := json.Marshal(body["state"])
	if !strings.Contains(string(state), `"start"`) {
		t.Errorf("state = %s", state)
	}
}

func TestBuilderState_MissingBot(t *testing.T) {
	s := newTestServer(t, testConfig("http://invalid.localhost"), newFakeStore())

	w := doJSON(t, s, http.MethodGet, "/api/builder/state", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/builder/state", `{"state":{"nodes":[]}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("save without bot status = %d, want 400", w.Code)
	}
}

func TestMemory_RoundTripAndAbsent(t *testing.T) {
	s := newTestServer(t, testConfig("http://invalid.localhost"), newFakeStore())

	w := doJSON(t, s, http.MethodPost, "/api/memory", `{"userId":"u1","memory":{"name":"Ada"}}`)
	if w.Code != http.StatusOK || decodeBody(t, w)["ok"] != true {
		t.Fatalf("save failed: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/api/memory?userId=u1", "")
	body := decodeBody(t, w)
	if body["ok"] != true {
		t.Fatalf("load not ok: %s", w.Body.String())
	}
	memory, _ := body["memory"].(map[string]any)
	if memory["name"] != "Ada" {
		t.Errorf("memory = %v", body["memory"])
	}

	w = doJSON(t, s, http.MethodGet, "/api/memory?userId=nobody", "")
	body = decodeBody(t, w)
	if body["ok"] != true || body["memory"] != nil {
		t.Errorf("absent memory should be ok with null, got %s", w.Body.String())
	}
}

func TestStoreEndpoints_NotConfigured(t *testing.T) {
	s := newTestServer(t, testConfig("http://invalid.localhost"), nil)

	paths := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/builder/state?bot=b", ""},
		{http.MethodPost, "/api/builder/state", `{"bot":"b","state":{}}`},
		{http.MethodGet, "/api/memory?userId=u", ""},
		{http.MethodPost, "/api/memory", `{"userId":"u","memory":{}}`},
		{http.MethodPost, "/api/analytics/event", `{"eventType":"message"}`},
		{http.MethodGet, "/api/analytics/summary", ""},
	}

	for _, p := range paths {
		w := doJSON(t, s, p.method, p.path, p.body)
		if w.Code != http.StatusOK {
			t.Errorf("%s %s: status = %d, want soft 200", p.method, p.path, w.Code)
			continue
		}
		body := decodeBody(t, w)
		if body["ok"] != false || body["code"] != core.ErrCodeStoreNotConfigured {
			t.Errorf("%s %s: body = %v", p.method, p.path, body)
		}
	}
}

func TestAnalyticsEvent_RequiresType(t *testing.T) {
	s := newTestServer(t, testConfig("http://invalid.localhost"), newFakeStore())

	w := doJSON(t, s, http.MethodPost, "/api/analytics/event", `{"userId":"u1"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAnalyticsSummary_Fold(t *testing.T) {
	st := newFakeStore()
	st.events = []core.AnalyticsEvent{
		{EventType: "message", UserID: "u1", SessionID: "s1", NodeID: "greet"},
		{EventType: "message", UserID: "u2", SessionID: "s2", NodeID: "greet"},
		{EventType: "node_visit", UserID: "u1", SessionID: "s1", NodeID: "pricing"},
		{EventType: "session_start", UserID: "u3", SessionID: "s3"},
	}
	s := newTestServer(t, testConfig("http://invalid.localhost"), st)

	w := doJSON(t, s, http.MethodGet, "/api/analytics/summary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		OK      bool                  `json:"ok"`
		Summary core.AnalyticsSummary `json:"summary"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if body.Summary.Messages != 2 {
		t.Errorf("messages = %d, want 2", body.Summary.Messages)
	}
	if body.Summary.Users != 3 {
		t.Errorf("users = %d, want 3", body.Summary.Users)
	}
	if body.Summary.Dropoff != 1 {
		t.Errorf("dropoff = %d, want 1 (session s3 never messaged)", body.Summary.Dropoff)
	}
	if body.Summary.ByNode["greet"] != 2 || body.Summary.ByNode["pricing"] != 1 {
		t.Errorf("byNode = %v", body.Summary.ByNode)
	}
}

func TestAutomationTrigger(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Summary: all good."}}]}`)
	}))
	t.Cleanup(upstream.Close)

	st := newFakeStore()
	s := newTestServer(t, testConfig(upstream.URL), st)

	w := doJSON(t, s, http.MethodPost, "/api/automation/trigger",
		`{"text":"summarize the week","userId":"u9"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d\n%s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["ok"] != true || body["output"] != "Summary: all good." {
		t.Errorf("body = %v", body)
	}

	if len(st.events) != 1 || st.events[0].EventType != "automation" || st.events[0].UserID != "u9" {
		t.Errorf("automation event = %+v", st.events)
	}
}

func TestAutomationTrigger_EventFailureDoesNotBlock(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"done"}}]}`)
	}))
	t.Cleanup(upstream.Close)

	st := newFakeStore()
	st.failAll = true
	s := newTestServer(t, testConfig(upstream.URL), st)

	w := doJSON(t, s, http.MethodPost, "/api/automation/trigger", `{"text":"go"}`)
	if w.Code != http.StatusOK || decodeBody(t, w)["ok"] != true {
		t.Errorf("analytics failure must not fail the trigger: %d %s", w.Code, w.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig("http://invalid.localhost")
	cfg.RateLimitPerMinute = 2
	s := newTestServer(t, cfg, nil)

	for i := 0; i < 2; i++ {
		if w := doJSON(t, s, http.MethodGet, "/api/health", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	if w := doJSON(t, s, http.MethodGet, "/api/health", ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", w.Code)
	}
}

func TestStoreFailure_SoftEnvelope(t *testing.T) {
	st := newFakeStore()
	st.failAll = true
	s := newTestServer(t, testConfig("http://invalid.localhost"), st)

	w := doJSON(t, s, http.MethodGet, "/api/memory?userId=u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want soft 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["ok"] != false {
		t.Errorf("body = %v", body)
	}
	if strings.Contains(w.Body.String(), "store is down") {
		t.Error("internal store error detail must not leak to the client")
	}
}

func TestEmbeddedPages(t *testing.T) {
	s := newTestServer(t, testConfig("http://invalid.localhost"), nil)

	for _, tc := range []struct {
		path        string
		contentType string
		marker      string
	}{
		{"/", core.ContentTypeHTML, "Bot Gateway"},
		{"/builder", core.ContentTypeHTML, "Bot Builder"},
		{"/widget.js", core.ContentTypeJavaScript, "data-persona"},
	} {
		w := doJSON(t, s, http.MethodGet, tc.path, "")
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", tc.path, w.Code)
		}
		if got := w.Header().Get(core.HeaderContentType); got != tc.contentType {
			t.Errorf("%s: content type = %q", tc.path, got)
		}
		if !strings.Contains(w.Body.String(), tc.marker) {
			t.Errorf("%s: body missing %q", tc.path, tc.marker)
		}
	}
}

package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"botgateway/internal/cache"
	"botgateway/internal/config"
	"botgateway/internal/core"
	"botgateway/internal/util"
)

// Relay forwards normalized requests to the upstream completion
// provider: model listing with cache and fallback, streamed chat
// completion passthrough, and non-streamed completion for automation.
type Relay struct {
	cfg    *config.Config
	client *http.Client
	models *cache.ModelsCache
	logger core.Logger
}

// New creates a relay with injected dependencies.
func New(cfg *config.Config, client *http.Client, models *cache.ModelsCache, logger core.Logger) *Relay {
	if logger == nil {
		logger = &core.NopLogger{}
	}
	return &Relay{
		cfg:    cfg,
		client: client,
		models: models,
		logger: logger,
	}
}

// applyUpstreamHeaders injects auth and optional attribution headers.
func (r *Relay) applyUpstreamHeaders(req *http.Request) {
	req.Header.Set(core.HeaderAuthorization, core.AuthBearerPrefix+r.cfg.APIKey)
	if r.cfg.SiteURL != "" {
		req.Header.Set(core.HeaderHTTPReferer, r.cfg.SiteURL)
	}
	if r.cfg.SiteName != "" {
		req.Header.Set(core.HeaderXTitle, r.cfg.SiteName)
	}
}

// fallbackResult builds a fallback model listing. degraded marks
// network/parse failures as opposed to upstream refusals.
func fallbackResult(degraded bool) *core.ModelsResult {
	return &core.ModelsResult{
		Models:   FallbackModels(),
		Fallback: true,
		Degraded: degraded,
	}
}

// ListModels returns the model catalog: cached within TTL, fetched from
// upstream on miss, static fallback when upstream is unusable. One
// outbound attempt per call, no retries; fallback is never cached.
func (r *Relay) ListModels(ctx context.Context) (*core.ModelsResult, error) {
	if r.cfg.APIKey == "" {
		return nil, core.ErrConfig("OPEN_ROUTER_API_KEY is not configured")
	}

	if models, ok := r.models.Get(r.cfg.CacheTTL); ok {
		return &core.ModelsResult{Models: models, Cached: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	r.applyUpstreamHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("Models fetch failed, serving fallback: %v", err)
		return fallbackResult(true), nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, core.MaxResponseBodySize))
	if err != nil {
		r.logger.Warn("Models response read failed, serving fallback: %v", err)
		return fallbackResult(true), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logger.Warn("Models fetch returned status %d, serving fallback: %s",
			resp.StatusCode, util.TruncateForLog(string(body), core.MaxUpstreamErrorLogSize))
		return fallbackResult(false), nil
	}

	var catalog core.UpstreamModelsResponse
	if err := util.UnmarshalJSON(body, &catalog); err != nil {
		r.logger.Warn("Models response parse failed, serving fallback: %v", err)
		return fallbackResult(true), nil
	}

	models := make([]core.Model, 0, len(catalog.Data))
	for _, entry := range catalog.Data {
		if entry.ID == "" {
			continue
		}
		name := entry.Name
		if name == "" {
			name = entry.ID
		}
		models = append(models, core.Model{ID: entry.ID, Name: name})
	}

	if len(models) == 0 {
		r.logger.Warn("Models response yielded no valid entries, serving fallback")
		return fallbackResult(false), nil
	}

	r.models.Set(models)
	return &core.ModelsResult{Models: models}, nil
}

// ValidateChatRequest trims and validates a chat request. Validation
// order is fixed: model first, then prompt presence, then prompt size.
func ValidateChatRequest(req *core.ChatRequest) *core.AppError {
	req.Model = strings.TrimSpace(req.Model)
	req.Prompt = strings.TrimSpace(req.Prompt)

	if req.Model == "" {
		return core.ErrMalformedRequest("model is required")
	}
	if req.Prompt == "" {
		return core.ErrMalformedRequest("prompt is required")
	}
	if utf8.RuneCountInString(req.Prompt) > core.MaxPromptChars {
		return core.ErrPromptTooLarge(core.MaxPromptChars)
	}
	return nil
}

// ChatStream is an open upstream event stream. The deadline armed at
// call start keeps running for the lifetime of the stream; Close
// releases it and the upstream connection.
type ChatStream struct {
	resp       *http.Response
	cancel     context.CancelFunc
	timeoutCtx context.Context
}

// Close aborts the upstream connection and releases the deadline timer.
func (s *ChatStream) Close() {
	if s.resp != nil && s.resp.Body != nil {
		_ = s.resp.Body.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// OpenChatStream validates the request and issues the single outbound
// streamed-completion call under a wall-clock deadline. Any returned
// error is terminal: no retries are attempted.
func (r *Relay) OpenChatStream(ctx context.Context, req *core.ChatRequest) (*ChatStream, error) {
	if r.cfg.APIKey == "" {
		return nil, core.ErrConfig("OPEN_ROUTER_API_KEY is not configured")
	}
	if appErr := ValidateChatRequest(req); appErr != nil {
		return nil, appErr
	}

	payload := core.UpstreamChatRequest{
		Model:  req.Model,
		Stream: true,
		Messages: []core.ChatMessage{
			{Role: "system", Content: SystemPrompt(req.Persona)},
			{Role: "user", Content: req.Prompt},
		},
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.cfg.ChatTimeout)

	resp, err := r.postCompletions(timeoutCtx, &payload, core.ContentTypeEventStream)
	if err != nil {
		cancel()
		return nil, r.classifyTransportError(ctx, timeoutCtx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logUpstreamError(resp)
		_ = resp.Body.Close()
		cancel()
		return nil, core.ErrUpstream(resp.StatusCode)
	}
	if resp.ContentLength == 0 {
		_ = resp.Body.Close()
		cancel()
		return nil, core.ErrUpstreamEmptyBody()
	}

	return &ChatStream{resp: resp, cancel: cancel, timeoutCtx: timeoutCtx}, nil
}

// FlushWriter is the downstream end of the pump.
type FlushWriter interface {
	io.Writer
	Flush()
}

// Pump copies the upstream byte stream to w verbatim, flushing after
// every chunk. Chunks are forwarded in arrival order with no framing
// awareness; at most one chunk is buffered, so backpressure from the
// client propagates to the upstream read. Either side failing ends the
// pump; partial delivery on client disconnect is expected, not an error
// to recover.
func (s *ChatStream) Pump(w FlushWriter) error {
	buf := make([]byte, core.StreamCopyBufferSize)
	for {
		n, readErr := s.resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
			w.Flush()
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			if errors.Is(s.timeoutCtx.Err(), context.DeadlineExceeded) {
				return core.ErrUpstreamTimeout(readErr)
			}
			return readErr
		}
	}
}

// Complete issues a single non-streamed completion and returns the
// generated text. Used by the automation trigger; the prompt cap does
// not apply here.
func (r *Relay) Complete(ctx context.Context, model, persona, text string) (string, error) {
	if r.cfg.APIKey == "" {
		return "", core.ErrConfig("OPEN_ROUTER_API_KEY is not configured")
	}
	if strings.TrimSpace(text) == "" {
		return "", core.ErrMalformedRequest("text is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = core.DefaultAutomationModel
	}

	payload := core.UpstreamChatRequest{
		Model:  model,
		Stream: false,
		Messages: []core.ChatMessage{
			{Role: "system", Content: SystemPrompt(persona)},
			{Role: "user", Content: text},
		},
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.cfg.ChatTimeout)
	defer cancel()

	resp, err := r.postCompletions(timeoutCtx, &payload, core.ContentTypeJSON)
	if err != nil {
		return "", r.classifyTransportError(ctx, timeoutCtx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logUpstreamError(resp)
		return "", core.ErrUpstream(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, core.MaxResponseBodySize))
	if err != nil {
		return "", core.ErrNetworkFailure(err)
	}

	var completion core.UpstreamCompletionResponse
	if err := util.UnmarshalJSON(body, &completion); err != nil {
		return "", core.ErrNetworkFailure(err)
	}
	if len(completion.Choices) == 0 {
		return "", core.ErrUpstreamEmptyBody()
	}
	return completion.Choices[0].Message.Content, nil
}

func (r *Relay) postCompletions(ctx context.Context, payload *core.UpstreamChatRequest, accept string) (*http.Response, error) {
	payloadBytes, err := util.MarshalJSON(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.cfg.BaseURL+"/chat/completions", bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set(core.HeaderContentType, core.ContentTypeJSON)
	req.Header.Set(core.HeaderAccept, accept)
	r.applyUpstreamHeaders(req)

	return r.client.Do(req)
}

// classifyTransportError distinguishes the armed deadline tripping from
// client cancellation and plain network failure.
func (r *Relay) classifyTransportError(parent, timeoutCtx context.Context, err error) error {
	if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return core.ErrUpstreamTimeout(err)
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	return core.ErrNetworkFailure(err)
}

func (r *Relay) logUpstreamError(resp *http.Response) {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, core.MaxUpstreamErrorLogSize))
	r.logger.Error("Upstream error: status=%d, body=%s",
		resp.StatusCode, util.TruncateForLog(string(body), core.MaxUpstreamErrorLogSize))
}

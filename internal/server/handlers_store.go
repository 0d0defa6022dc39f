package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"botgateway/internal/core"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type builderStatePayload struct {
	Bot   string          `json:"bot"`
	State json.RawMessage `json:"state"`
}

type memoryPayload struct {
	UserID string          `json:"userId"`
	Memory json.RawMessage `json:"memory"`
}

type analyticsEventPayload struct {
	EventType string          `json:"eventType"`
	UserID    string          `json:"userId"`
	SessionID string          `json:"sessionId"`
	NodeID    string          `json:"nodeId"`
	Meta      json.RawMessage `json:"meta"`
}

func rawJSONPresent(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}

func (s *Server) handleBuilderStateGet(c *gin.Context) {
	st, ok := s.requireStore(c)
	if !ok {
		return
	}

	bot := strings.TrimSpace(c.Query("bot"))
	if bot == "" {
		s.respondError(c, core.ErrMalformedRequest("bot is required"))
		return
	}

	state, err := st.LoadBuilderState(c.Request.Context(), bot)
	if err != nil {
		s.respondStoreFailure(c, "load builder state", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "state": state})
}

func (s *Server) handleBuilderStateSave(c *gin.Context) {
	st, ok := s.requireStore(c)
	if !ok {
		return
	}

	var payload builderStatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.respondError(c, core.ErrMalformedRequest("invalid JSON body"))
		return
	}
	payload.Bot = strings.TrimSpace(payload.Bot)
	if payload.Bot == "" {
		s.respondError(c, core.ErrMalformedRequest("bot is required"))
		return
	}
	if !rawJSONPresent(payload.State) {
		s.respondError(c, core.ErrMalformedRequest("state is required"))
		return
	}

	if err := st.SaveBuilderState(c.Request.Context(), payload.Bot, payload.State); err != nil {
		s.respondStoreFailure(c, "save builder state", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleMemoryGet(c *gin.Context) {
	st, ok := s.requireStore(c)
	if !ok {
		return
	}

	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		s.respondError(c, core.ErrMalformedRequest("userId is required"))
		return
	}

	memory, err := st.LoadMemory(c.Request.Context(), userID)
	if err != nil {
		s.respondStoreFailure(c, "load memory", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "memory": memory})
}

func (s *Server) handleMemorySave(c *gin.Context) {
	st, ok := s.requireStore(c)
	if !ok {
		return
	}

	var payload memoryPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.respondError(c, core.ErrMalformedRequest("invalid JSON body"))
		return
	}
	payload.UserID = strings.TrimSpace(payload.UserID)
	if payload.UserID == "" {
		s.respondError(c, core.ErrMalformedRequest("userId is required"))
		return
	}
	if !rawJSONPresent(payload.Memory) {
		s.respondError(c, core.ErrMalformedRequest("memory is required"))
		return
	}

	if err := st.SaveMemory(c.Request.Context(), payload.UserID, payload.Memory); err != nil {
		s.respondStoreFailure(c, "save memory", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleAnalyticsEvent(c *gin.Context) {
	st, ok := s.requireStore(c)
	if !ok {
		return
	}

	var payload analyticsEventPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.respondError(c, core.ErrMalformedRequest("invalid JSON body"))
		return
	}
	payload.EventType = strings.TrimSpace(payload.EventType)
	if payload.EventType == "" {
		s.respondError(c, core.ErrMalformedRequest("eventType is required"))
		return
	}

	event := &core.AnalyticsEvent{
		ID:        uuid.New().String(),
		EventType: payload.EventType,
		UserID:    payload.UserID,
		SessionID: payload.SessionID,
		NodeID:    payload.NodeID,
		Meta:      payload.Meta,
		CreatedAt: time.Now().UTC(),
	}

	if err := st.InsertEvent(c.Request.Context(), event); err != nil {
		s.respondStoreFailure(c, "insert event", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleAnalyticsSummary folds the most recent events into counters.
// The fold is recomputed per request over a bounded scan window rather
// than maintained incrementally.
func (s *Server) handleAnalyticsSummary(c *gin.Context) {
	st, ok := s.requireStore(c)
	if !ok {
		return
	}

	events, err := st.RecentEvents(c.Request.Context(), core.AnalyticsScanLimit)
	if err != nil {
		s.respondStoreFailure(c, "load events", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": summarizeEvents(events)})
}

func summarizeEvents(events []core.AnalyticsEvent) core.AnalyticsSummary {
	summary := core.AnalyticsSummary{ByNode: make(map[string]int)}

	users := make(map[string]struct{})
	sessions := make(map[string]bool)

	for _, event := range events {
		isMessage := event.EventType == "message"
		if isMessage {
			summary.Messages++
		}
		if event.UserID != "" {
			users[event.UserID] = struct{}{}
		}
		if event.NodeID != "" {
			summary.ByNode[event.NodeID]++
		}
		if event.SessionID != "" {
			sessions[event.SessionID] = sessions[event.SessionID] || isMessage
		}
	}

	summary.Users = len(users)
	for _, sawMessage := range sessions {
		if !sawMessage {
			summary.Dropoff++
		}
	}

	return summary
}

// handleAutomationTrigger runs one non-streamed completion for workflow
// callers. The analytics record is best effort and never blocks the
// response.
func (s *Server) handleAutomationTrigger(c *gin.Context) {
	var req core.AutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, core.ErrMalformedRequest("invalid JSON body"))
		return
	}

	output, err := s.relay.Complete(c.Request.Context(), req.Model, req.Persona, req.Text)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if s.store != nil {
		event := &core.AnalyticsEvent{
			ID:        uuid.New().String(),
			EventType: "automation",
			UserID:    req.UserID,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.InsertEvent(c.Request.Context(), event); err != nil {
			s.logger.Warn("Automation event not recorded: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "output": output})
}

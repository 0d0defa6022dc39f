package server

import (
	"net/http"

	"botgateway/internal/core"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"service": core.ServiceName,
	})
}

// handleModels serves the model catalog: fresh, cached, or fallback.
// Fallback is a success; the flags in the body tell the client which
// tier it got.
func (s *Server) handleModels(c *gin.Context) {
	result, err := s.relay.ListModels(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleChat relays one prompt upstream and streams the answer back
// verbatim. All failures before the first upstream byte map to the JSON
// error envelope; once streaming starts the connection is the contract.
func (s *Server) handleChat(c *gin.Context) {
	var req core.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, core.ErrMalformedRequest("invalid JSON body"))
		return
	}

	stream, err := s.relay.OpenChatStream(c.Request.Context(), &req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer stream.Close()

	setStreamingHeaders(c)
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	if err := stream.Pump(c.Writer); err != nil {
		// Headers are gone; nothing to send the client beyond the cut.
		s.logger.Warn("Chat stream ended early: %v", err)
	}
}

func (s *Server) handleStats(c *gin.Context) {
	stats := s.metricsService.GetRequestStats()
	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"stats": stats,
		"qps":   s.metricsService.GetQPS(),
	})
}

package server

import (
	"net/http"

	"botgateway/internal/core"

	"github.com/gin-gonic/gin"
)

// respondError renders any error as the JSON error envelope. AppErrors
// carry their own status and code; anything else is a 500 CONFIG_ERROR
// with the detail kept in the log only.
func (s *Server) respondError(c *gin.Context, err error) {
	appErr, ok := core.AsAppError(err)
	if !ok {
		s.logger.Error("Unclassified handler error: %v", err)
		appErr = core.ErrConfig("internal error")
	}

	if appErr.Cause != nil {
		s.logger.Warn("Request failed: %v", appErr)
	}

	if appErr.Status == http.StatusOK {
		// Soft error: clients read ok:false and degrade locally.
		c.JSON(http.StatusOK, gin.H{
			"ok":    false,
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}

	c.JSON(appErr.Status, gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

func (s *Server) respondStoreFailure(c *gin.Context, op string, err error) {
	s.logger.Error("Store %s failed: %v", op, err)
	c.JSON(http.StatusOK, gin.H{
		"ok":    false,
		"error": "store operation failed",
	})
}

// requireStore fetches the persistence backend, answering the soft
// not-configured envelope when none is wired. Callers stop on false.
func (s *Server) requireStore(c *gin.Context) (core.Store, bool) {
	if s.store == nil {
		s.respondError(c, core.ErrStoreNotConfigured())
		return nil, false
	}
	return s.store, true
}

// setStreamingHeaders prepares the response for server-sent events.
// Must run before the first body write.
func setStreamingHeaders(c *gin.Context) {
	c.Header(core.HeaderContentType, core.ContentTypeEventStream)
	c.Header(core.HeaderCacheControl, core.CacheControlNoCache)
	c.Header(core.HeaderConnection, core.ConnectionKeepAlive)
	c.Header("X-Accel-Buffering", "no")
}

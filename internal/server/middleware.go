package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"botgateway/internal/core"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxRequestBodySize caps request bodies. Builder flows can get large
// but nowhere near this.
const maxRequestBodySize = 10 << 20

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(core.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(core.HeaderXRequestID, requestID)
		c.Next()
	}
}

// corsMiddleware answers for every route. The request Origin is echoed
// only when it matches a configured allow-list entry; otherwise the
// response falls back to "*" when the wildcard is configured, or the
// literal string "null" when it is not.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader(core.HeaderOrigin)
		c.Header("Access-Control-Allow-Origin", s.resolveAllowOrigin(origin))
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Max-Age", core.CORSMaxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) resolveAllowOrigin(origin string) string {
	if origin != "" {
		for _, allowed := range s.cfg.AllowedOrigins {
			if strings.EqualFold(allowed, origin) {
				return origin
			}
		}
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == core.CORSOriginAny {
			return core.CORSOriginAny
		}
	}
	return core.CORSOriginNull
}

func (s *Server) maxBodySizeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodySize)
		}
		c.Next()
	}
}

func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		s.metricsService.RecordRequest(c.Writer.Status() < http.StatusInternalServerError,
			time.Since(start).Milliseconds(), route)
	}
}

// rateLimiter tracks request timestamps per client IP over a sliding
// one-minute window.
type rateLimiter struct {
	mu        sync.Mutex
	perMinute int
	clients   map[string][]time.Time
}

func newRateLimiter(perMinute int) *rateLimiter {
	return &rateLimiter{
		perMinute: perMinute,
		clients:   make(map[string][]time.Time),
	}
}

func (r *rateLimiter) allow(clientIP string) bool {
	if r.perMinute <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Minute)

	stamps := r.clients[clientIP]
	firstFresh := 0
	for firstFresh < len(stamps) && stamps[firstFresh].Before(cutoff) {
		firstFresh++
	}
	stamps = stamps[firstFresh:]

	if len(stamps) >= r.perMinute {
		r.clients[clientIP] = stamps
		return false
	}

	r.clients[clientIP] = append(stamps, now)
	return true
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"code":  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

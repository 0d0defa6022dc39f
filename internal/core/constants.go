package core

import "time"

// Service identity
const (
	ServiceName = "bot-gateway"
)

// Server defaults
const (
	DefaultPort    = "8080"
	DefaultGinMode = "release"
)

// Upstream defaults
const (
	DefaultUpstreamBaseURL = "https://openrouter.ai/api/v1"
	DefaultModelsCacheTTL  = 300000 * time.Millisecond
	DefaultChatTimeout     = 30000 * time.Millisecond
	DefaultAutomationModel = "openrouter/auto"
)

// Request limits
const (
	MaxPromptChars     = 8000
	AnalyticsScanLimit = 1000
)

// HTTP client config constants
const (
	HTTPMaxIdleConns          = 500
	HTTPMaxIdleConnsPerHost   = 100
	HTTPMaxConnsPerHost       = 200
	HTTPIdleConnTimeout       = 600 * time.Second
	HTTPTLSHandshakeTimeout   = 30 * time.Second
	HTTPResponseHeaderTimeout = 30 * time.Second
	HTTPExpectContinueTimeout = 5 * time.Second
)

// Header names
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
	HeaderOrigin        = "Origin"
	HeaderCacheControl  = "Cache-Control"
	HeaderConnection    = "Connection"
	HeaderHTTPReferer   = "HTTP-Referer"
	HeaderXTitle        = "X-Title"
	HeaderXRequestID    = "X-Request-ID"
)

// Header values
const (
	ContentTypeJSON        = "application/json"
	ContentTypeEventStream = "text/event-stream"
	ContentTypeJavaScript  = "application/javascript; charset=utf-8"
	ContentTypeHTML        = "text/html; charset=utf-8"
	CacheControlNoCache    = "no-cache"
	ConnectionKeepAlive    = "keep-alive"
	AuthBearerPrefix       = "Bearer "
	CORSMaxAge             = "86400"
	CORSOriginAny          = "*"
	CORSOriginNull         = "null"
)

// Event-stream framing (forwarded verbatim, never interpreted here)
const (
	StreamChunkPrefix      = "data: "
	StreamChunkDoneMessage = "[DONE]"
)

// Stream relay constants
const (
	// StreamCopyBufferSize bounds per-relay memory: the pump holds at
	// most one chunk of this size in flight.
	StreamCopyBufferSize    = 32 * 1024
	MaxUpstreamErrorLogSize = 2048
	MaxResponseBodySize     = 10 * 1024 * 1024
)

// Persona names
const (
	PersonaDefault = "default"
	PersonaSales   = "sales"
	PersonaTutor   = "tutor"
	PersonaSupport = "support"
)

// File and logging constants
const (
	FilePermissionReadWrite = 0o600
	MaxDebugFilePathLength  = 255
)

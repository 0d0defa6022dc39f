package config

import (
	"os"
	"time"

	"botgateway/internal/core"
	"botgateway/internal/util"
)

// Config is the explicit configuration structure, enumerated once at
// startup and passed into every component that needs it. No component
// reads the environment after this point.
type Config struct {
	Port    string
	GinMode string

	// Upstream completion/catalog provider
	APIKey      string
	BaseURL     string
	CacheTTL    time.Duration
	ChatTimeout time.Duration
	SiteURL     string
	SiteName    string

	// CORS allow-list; ["*"] means any origin
	AllowedOrigins []string

	// Optional persistence backends
	StoreURL string
	StoreKey string
	RedisURL string

	RateLimitPerMinute int

	HTTPClientSettings HTTPClientSettings
}

// HTTPClientSettings HTTP client configuration
type HTTPClientSettings struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	RequestTimeout      time.Duration
}

// DefaultHTTPClientSettings default HTTP client settings. RequestTimeout
// is deliberately zero: the chat relay governs its own deadline and SSE
// streams must not be cut by a blanket client timeout.
func DefaultHTTPClientSettings() HTTPClientSettings {
	return HTTPClientSettings{
		MaxIdleConns:        core.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: core.HTTPMaxIdleConnsPerHost,
		MaxConnsPerHost:     core.HTTPMaxConnsPerHost,
		IdleConnTimeout:     core.HTTPIdleConnTimeout,
		TLSHandshakeTimeout: core.HTTPTLSHandshakeTimeout,
	}
}

// LoadFromEnv loads the configuration from environment variables.
func LoadFromEnv(logger core.Logger) *Config {
	apiKey := os.Getenv("OPEN_ROUTER_API_KEY")
	if apiKey == "" {
		logger.Warn("OPEN_ROUTER_API_KEY is not set; chat and model listing will fail")
	}

	allowedOrigins := util.ParseEnvList(os.Getenv("ALLOWED_ORIGIN"))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{core.CORSOriginAny}
	}

	cacheTTLMs := util.ParseEnvInt("MODELS_CACHE_TTL_MS", int(core.DefaultModelsCacheTTL/time.Millisecond))
	chatTimeoutMs := util.ParseEnvInt("CHAT_TIMEOUT_MS", int(core.DefaultChatTimeout/time.Millisecond))

	storeURL := os.Getenv("SUPABASE_URL")
	storeKey := os.Getenv("SUPABASE_ANON_KEY")
	if (storeURL == "") != (storeKey == "") {
		logger.Warn("SUPABASE_URL and SUPABASE_ANON_KEY must both be set; persistence disabled")
		storeURL = ""
		storeKey = ""
	}

	cfg := &Config{
		Port:               util.GetEnvWithDefault("PORT", core.DefaultPort),
		GinMode:            util.GetEnvWithDefault("GIN_MODE", core.DefaultGinMode),
		APIKey:             apiKey,
		BaseURL:            util.GetEnvWithDefault("OPENROUTER_BASE_URL", core.DefaultUpstreamBaseURL),
		CacheTTL:           time.Duration(cacheTTLMs) * time.Millisecond,
		ChatTimeout:        time.Duration(chatTimeoutMs) * time.Millisecond,
		SiteURL:            os.Getenv("SITE_URL"),
		SiteName:           os.Getenv("SITE_NAME"),
		AllowedOrigins:     allowedOrigins,
		StoreURL:           storeURL,
		StoreKey:           storeKey,
		RedisURL:           os.Getenv("REDIS_URL"),
		RateLimitPerMinute: util.ParseEnvInt("RATE_LIMIT", 120),
		HTTPClientSettings: DefaultHTTPClientSettings(),
	}

	logger.Info("Configuration loaded")
	logger.Info("  - Upstream base URL: %s", cfg.BaseURL)
	logger.Info("  - Models cache TTL: %s", cfg.CacheTTL)
	logger.Info("  - Chat timeout: %s", cfg.ChatTimeout)
	logger.Info("  - Allowed origins: %v", cfg.AllowedOrigins)
	logger.Info("  - Persistence: %s", describeStore(cfg))

	return cfg
}

func describeStore(cfg *Config) string {
	switch {
	case cfg.StoreURL != "":
		return "supabase"
	case cfg.RedisURL != "":
		return "redis"
	default:
		return "none"
	}
}

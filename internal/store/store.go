package store

import (
	"botgateway/internal/config"
	"botgateway/internal/core"
)

// Interface compliance checks
var (
	_ core.Store = (*SupabaseStore)(nil)
	_ core.Store = (*RedisStore)(nil)
)

// InitStore selects the persistence backend: Supabase when configured,
// Redis as the self-hosted alternative, or none. A nil store is not an
// error; the HTTP layer degrades those endpoints to soft failures.
func InitStore(cfg *config.Config, logger core.Logger) (core.Store, error) {
	if cfg.StoreURL != "" && cfg.StoreKey != "" {
		logger.Info("Using Supabase store at %s", cfg.StoreURL)
		return NewSupabaseStore(cfg.StoreURL, cfg.StoreKey, nil), nil
	}

	if cfg.RedisURL != "" {
		st, err := NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("Using Redis store")
		return st, nil
	}

	logger.Warn("No persistence backend configured; builder state, memory and analytics are disabled")
	return nil, nil
}

package ratelimit

import (
	"certanchor/internal/config"
	"certanchor/internal/domain"

	"github.com/ethereum/go-ethereum/log"
)

// New returns the redis limiter when REDIS_ADDR is configured and the
// in-process limiter otherwise.
func New(cfg config.Config) (domain.RateLimiter, error) {
	if cfg.RedisAddr == "" {
		log.Info("Using in-memory rate limiter", "max_keys", cfg.RateLimitMaxKeys)
		return NewMemoryLimiter(nil, cfg.RateLimitMaxKeys), nil
	}
	limiter, err := NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, nil)
	if err != nil {
		return nil, err
	}
	log.Info("Using redis rate limiter", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return limiter, nil
}

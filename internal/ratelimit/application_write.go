package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/dfund/marketplace/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyApplicationWrite = "dfund:application:write:user:%s"

// ApplicationWriteLimiter throttles application create/update/submit per
// candidate. A nil or disabled limiter allows everything.
type ApplicationWriteLimiter struct {
	enabled bool
	log     *zap.Logger

	client *redis.Client
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewApplicationWriteLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*ApplicationWriteLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.ApplicationWriteRate <= 0 || limitCfg.ApplicationWriteBurst <= 0 {
		return nil, errors.New("application write rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return newApplicationWriteLimiter(client, limitCfg.ApplicationWriteRate, limitCfg.ApplicationWriteBurst, log), nil
}

func newApplicationWriteLimiter(client *redis.Client, rate float64, burst int, log *zap.Logger) *ApplicationWriteLimiter {
	return &ApplicationWriteLimiter{
		enabled: true,
		log:     log.Named("ratelimit"),
		client:  client,
		bucket:  NewTokenBucket(client),
		rate:    rate,
		burst:   burst,
	}
}

func (l *ApplicationWriteLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// Allow consumes one token for userID.
func (l *ApplicationWriteLimiter) Allow(ctx context.Context, userID snowflake.ID) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}

	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyApplicationWrite, userID.String()), l.rate, l.burst)
	if err != nil {
		l.log.Warn("application write rate limit check failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return res, nil
}

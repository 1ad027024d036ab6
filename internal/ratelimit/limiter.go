// Package ratelimit enforces per-user budgets for sensitive operations on
// top of a Redis token bucket. Budgets come from the hot-reloadable config
// holder, so limits can be tuned without a restart.
package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/pankaj-raikar/taskhive/internal/config"
	"github.com/pankaj-raikar/taskhive/internal/observability/metrics"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"go.uber.org/zap"
)

const keyPattern = "ratelimit:%s:user:%s"

type Limiter struct {
	log     *zap.Logger
	enabled bool
	bucket  *TokenBucket
	holder  *config.RateLimitConfigHolder
	metrics *metrics.Metrics
}

// NewRedisClient returns nil when rate limiting is disabled; the limiter
// treats a nil client as allow-all.
func NewRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.RateLimitEnabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(cfg.RedisAddr),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func New(log *zap.Logger, cfg *config.Config, client *redis.Client, holder *config.RateLimitConfigHolder, m *metrics.Metrics) *Limiter {
	return &Limiter{
		log:     log.Named("ratelimit"),
		enabled: cfg.RateLimitEnabled && client != nil,
		bucket:  NewTokenBucket(client),
		holder:  holder,
		metrics: m,
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.enabled
}

// Allow consumes one token from the budget registered under key for the
// given user. A missing budget or a Redis failure allows the call; denials
// return a RATE_LIMITED error carrying the retry hint.
func (l *Limiter) Allow(ctx context.Context, key string, userID snowflake.ID) error {
	if !l.Enabled() {
		return nil
	}

	budget := l.holder.Budget(key)
	if budget == nil {
		l.log.Warn("no budget configured for rate limit key", zap.String("key", key))
		return nil
	}

	rate := float64(budget.Limit) / budget.Window.Seconds()
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyPattern, key, userID.String()), rate, budget.Limit)
	if err != nil {
		// Fail open: losing Redis must not take writes down with it.
		l.log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
		return nil
	}

	if !res.Allowed {
		l.metrics.RecordRateLimitDenied(ctx, key, "budget_exhausted")
		return apperr.RateLimited(res.RetryAfter)
	}

	l.metrics.RecordRateLimitAllowed(ctx, key)
	return nil
}

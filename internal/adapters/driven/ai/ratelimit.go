package ai

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
)

// Default limits for model listing. Listing is user-triggered, so the
// bucket only stops runaway refresh loops.
const (
	DefaultRequestsPerSecond = 2.0
	DefaultBurstSize         = 4
	DefaultMaxWait           = 3 * time.Second
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
	// MaxWait is the longest a caller is queued before being rejected.
	MaxWait time.Duration
}

// RateLimiter throttles model list requests with a token bucket.
type RateLimiter struct {
	limiter *rate.Limiter
	maxWait time.Duration
}

// NewRateLimiter creates a rate limiter. Zero fields take the defaults.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		maxWait: cfg.MaxWait,
	}
}

// Wait blocks until a request may proceed. It returns ErrRateLimited
// without waiting when the delay would exceed the configured maximum.
func (r *RateLimiter) Wait(ctx context.Context) error {
	reservation := r.limiter.Reserve()
	delay := reservation.Delay()
	if delay > r.maxWait {
		reservation.Cancel()
		return domain.ErrRateLimited
	}
	if delay == 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		reservation.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Allow reports whether a request can be made immediately.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// rateLimitedService throttles ListModels and passes every other call through.
type rateLimitedService struct {
	driven.LLMService
	limiter *RateLimiter
}

func (s *rateLimitedService) ListModels(ctx context.Context) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.LLMService.ListModels(ctx)
}

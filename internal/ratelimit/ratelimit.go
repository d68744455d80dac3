// Package ratelimit provides token-bucket pacing for upstream requests.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/reouo/bilifeed/internal/logger"
)

// DefaultArticleDelay is the minimum delay enforced after each article
// fetch. The upstream throttles aggressive article readers; this pace is
// deliberate, not incidental latency.
const DefaultArticleDelay = 15 * time.Second

// Pacer gates successive upstream requests.
type Pacer interface {
	// Wait blocks until the next request is allowed or the context ends.
	Wait(ctx context.Context) error
}

// Limiter is a token-bucket Pacer.
type Limiter struct {
	limiter *rate.Limiter
	logger  logger.Interface
}

// New creates a Limiter that allows one request per interval with no burst.
func New(interval time.Duration, log logger.Interface) *Limiter {
	if interval <= 0 {
		interval = DefaultArticleDelay
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  log,
	}
}

// Wait blocks until the limiter allows the next request.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		l.logger.Warn("Rate limiter wait failed", "error", err)
		return err
	}
	return nil
}

// Allow reports whether a request is allowed without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Nop is a Pacer that never blocks. Used in tests.
type Nop struct{}

// Wait returns immediately.
func (Nop) Wait(ctx context.Context) error {
	return ctx.Err()
}

// Package resource bounds the load placed on remote services: the number of
// oracle requests in flight, the request rate and the token budget.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxInFlight is the maximum number of concurrent requests.
	// If 0, defaults to 2.
	MaxInFlight int64

	// RequestsPerSecond limits the request rate. If 0, unlimited.
	RequestsPerSecond float64

	// Burst is the request burst size. If 0, defaults to MaxInFlight.
	Burst int

	// TokensPerMinute limits the number of completion tokens requested per
	// minute. If 0, unlimited.
	TokensPerMinute int64
}

// Controller gates outbound requests.
type Controller struct {
	cfg Config

	sem      *semaphore.Weighted
	inFlight atomic.Int64

	reqLimiter   *rate.Limiter // nil if unlimited
	tokenLimiter *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.MaxInFlight)
	}

	c := &Controller{
		cfg: cfg,
		sem: semaphore.NewWeighted(cfg.MaxInFlight),
	}

	if cfg.RequestsPerSecond > 0 {
		c.reqLimiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	if cfg.TokensPerMinute > 0 {
		c.tokenLimiter = rate.NewLimiter(rate.Limit(float64(cfg.TokensPerMinute)/60), int(cfg.TokensPerMinute))
	}

	return c
}

// Acquire waits for the rate limiter and a free request slot.
// Callers must Release after a nil return.
func (c *Controller) Acquire(ctx context.Context) error {
	if c == nil {
		return nil
	}

	if c.reqLimiter != nil {
		if err := c.reqLimiter.Wait(ctx); err != nil {
			return err
		}
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	c.inFlight.Add(1)
	return nil
}

// TryAcquire reserves a slot without blocking. The rate limit is not
// consulted.
func (c *Controller) TryAcquire() bool {
	if c == nil {
		return true
	}
	if !c.sem.TryAcquire(1) {
		return false
	}
	c.inFlight.Add(1)
	return true
}

// Release frees a request slot.
func (c *Controller) Release() {
	if c == nil {
		return
	}
	c.inFlight.Add(-1)
	c.sem.Release(1)
}

// AcquireTokens waits until n completion tokens fit the per-minute budget.
// Requests larger than the whole budget are clamped to it.
func (c *Controller) AcquireTokens(ctx context.Context, n int) error {
	if c == nil || c.tokenLimiter == nil || n <= 0 {
		return nil
	}
	return c.tokenLimiter.WaitN(ctx, min(n, c.tokenLimiter.Burst()))
}

// InFlight returns the number of requests currently holding a slot.
func (c *Controller) InFlight() int64 {
	if c == nil {
		return 0
	}
	return c.inFlight.Load()
}

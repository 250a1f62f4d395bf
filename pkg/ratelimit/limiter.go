// Package ratelimit throttles calls to the language-completion service so a
// chatty session cannot burn through an API quota. Token bucket semantics
// via golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration.
type Config struct {
	Enabled           bool
	RequestsPerMinute int
}

// DefaultConfig returns the default rate limiting configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		RequestsPerMinute: 30,
	}
}

// Limiter gates LLM round-trips. A disabled limiter admits everything.
type Limiter struct {
	config  Config
	limiter *rate.Limiter
}

// NewLimiter creates a limiter from config. The bucket holds a small burst
// so a single turn's classify+narrate pair never stalls mid-turn.
func NewLimiter(config Config) *Limiter {
	rpm := config.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultConfig().RequestsPerMinute
	}
	perSecond := rate.Limit(float64(rpm) / 60.0)
	return &Limiter{
		config:  config,
		limiter: rate.NewLimiter(perSecond, 2),
	}
}

// Wait blocks until a request token is available or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if !l.config.Enabled {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request token is available right now.
func (l *Limiter) Allow() bool {
	if !l.config.Enabled {
		return true
	}
	return l.limiter.Allow()
}

// Reserve returns the delay before the next request would be admitted.
func (l *Limiter) Reserve() time.Duration {
	if !l.config.Enabled {
		return 0
	}
	r := l.limiter.Reserve()
	if !r.OK() {
		return rate.InfDuration
	}
	return r.Delay()
}

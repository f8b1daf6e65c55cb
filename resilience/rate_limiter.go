package resilience

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a call is refused by the rate limiter.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string `mapstructure:"-"`
	// Rate is the number of requests allowed per second.
	Rate float64 `mapstructure:"rate" validate:"gte=0"`
	// Burst is the maximum burst size.
	Burst int `mapstructure:"burst" validate:"gte=0"`
	// OnLimit is called when a request is rate limited.
	OnLimit func(name string) `mapstructure:"-"`
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:  name,
		Rate:  10.0,
		Burst: 20,
	}
}

// RateLimiter is a token bucket limiter backed by golang.org/x/time/rate.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10.0
	}
	if config.Burst <= 0 {
		config.Burst = max(1, int(config.Rate))
	}

	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}
}

// Allow reports whether a request may proceed now, consuming a token if so.
func (rl *RateLimiter) Allow() bool {
	if rl.limiter.Allow() {
		return true
	}
	rl.limited()
	return false
}

// Wait blocks until a token is available or ctx is done. If ctx has a
// deadline that the wait would overrun it fails immediately with ErrRateLimited.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	err := rl.limiter.Wait(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	rl.limited()
	return fmt.Errorf("%w: %v", ErrRateLimited, err)
}

// Execute runs a function if rate limit allows.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// ExecuteWait blocks until rate limit allows, then runs the function.
func (rl *RateLimiter) ExecuteWait(ctx context.Context, fn func() error) error {
	if err := rl.Wait(ctx); err != nil {
		return err
	}
	return fn()
}

// Tokens returns the number of tokens currently available.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Tokens()
}

// Rate returns the rate limit (requests per second).
func (rl *RateLimiter) Rate() float64 {
	return rl.config.Rate
}

// Burst returns the burst size.
func (rl *RateLimiter) Burst() int {
	return rl.config.Burst
}

func (rl *RateLimiter) limited() {
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
}

package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Common bulkhead errors.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for metrics/logging.
	Name string `mapstructure:"-"`
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"gte=0"`
	// MaxWait is how long to wait for a slot. 0 means fail immediately.
	MaxWait time.Duration `mapstructure:"max_wait" validate:"gte=0"`
	// OnReject is called when a request is rejected.
	OnReject func(name string) `mapstructure:"-"`
}

// DefaultBulkheadConfig returns sensible defaults.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{
		Name:          name,
		MaxConcurrent: 10,
	}
}

// Bulkhead caps the number of concurrent calls using a weighted semaphore.
type Bulkhead struct {
	config BulkheadConfig
	sem    *semaphore.Weighted
	inUse  atomic.Int64
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	return &Bulkhead{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrent)),
	}
}

// Execute runs the given function within the bulkhead.
// Returns ErrBulkheadFull or ErrBulkheadTimeout if no slot is available.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name)
		}
		return err
	}
	b.inUse.Add(1)
	defer func() {
		b.inUse.Add(-1)
		b.sem.Release(1)
	}()

	return fn()
}

// ExecuteWithResult runs a function that returns a value.
func ExecuteWithResult[T any](b *Bulkhead, ctx context.Context, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		return nil
	}
	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.config.MaxWait)
	defer cancel()
	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return ErrBulkheadTimeout
	}
	return nil
}

// Available returns the number of available slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - b.InUse()
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	return int(b.inUse.Load())
}

// MaxConcurrent returns the maximum concurrent calls allowed.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}

package resilience

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the maximum number of in-flight operations.
	// Default: 10
	MaxConcurrent int64

	// Wait makes Acquire block until a slot frees (or ctx ends) instead
	// of returning ErrBulkheadFull immediately.
	Wait bool
}

// Bulkhead caps concurrent operations so one slow API family cannot
// absorb every worker in the process.
type Bulkhead struct {
	config BulkheadConfig
	sem    *semaphore.Weighted
}

// NewBulkhead creates a bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{
		config: config,
		sem:    semaphore.NewWeighted(config.MaxConcurrent),
	}
}

// Acquire claims a slot. With Wait unset a full bulkhead returns
// ErrBulkheadFull; with Wait set the caller blocks until admitted or
// ctx ends.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if b.config.Wait {
		return b.sem.Acquire(ctx, 1)
	}
	if !b.sem.TryAcquire(1) {
		return ErrBulkheadFull
	}
	return nil
}

// Release frees a slot claimed by Acquire.
func (b *Bulkhead) Release() {
	b.sem.Release(1)
}

// Execute runs op inside a bulkhead slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return op(ctx)
}

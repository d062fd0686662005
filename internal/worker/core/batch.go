package core

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// RunBatch calls fn for every item with at most maxGoroutines in flight and
// returns how many calls failed. Failures do not stop the rest of the batch.
func RunBatch[T any](ctx context.Context, items []T, maxGoroutines int, fn func(context.Context, T) error) int {
	if maxGoroutines <= 0 {
		maxGoroutines = 1
	}

	var failed atomic.Int64

	p := pool.New().WithContext(ctx).WithMaxGoroutines(maxGoroutines)
	for _, item := range items {
		p.Go(func(ctx context.Context) error {
			if err := fn(ctx, item); err != nil {
				failed.Add(1)
				return err
			}
			return nil
		})
	}
	_ = p.Wait()

	return int(failed.Load())
}

// Sleep waits for d or until ctx is done. It returns false if ctx ended first.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

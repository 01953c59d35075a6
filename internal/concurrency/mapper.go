// Package concurrency provides bounded, order-preserving fan-out helpers.
package concurrency

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Map runs worker over items with at most limit invocations in flight and
// returns the results in input order.
//
// The first worker error is returned as soon as it happens. Siblings already
// running are not cancelled; they finish in the background and their results
// are dropped. No new items are claimed after a failure.
func Map[T, R any](ctx context.Context, items []T, worker func(ctx context.Context, item T, index int) (R, error), limit int) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}
	if limit < 1 {
		limit = 1
	}

	var (
		g       errgroup.Group
		cursor  atomic.Int64
		stopped atomic.Bool
		failed  = make(chan error, 1)
	)
	for w := 0; w < min(limit, len(items)); w++ {
		g.Go(func() error {
			for !stopped.Load() {
				i := int(cursor.Add(1) - 1)
				if i >= len(items) {
					return nil
				}
				out, err := worker(ctx, items[i], i)
				if err != nil {
					stopped.Store(true)
					select {
					case failed <- err:
					default:
					}
					return err
				}
				results[i] = out
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-failed:
		return nil, err
	case err := <-done:
		// Both channels can be ready at once; the error that stopped the
		// workers first is the one reported.
		select {
		case first := <-failed:
			return nil, first
		default:
		}
		if err != nil {
			return nil, err
		}
		return results, nil
	}
}

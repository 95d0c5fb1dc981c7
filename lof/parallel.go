package lof

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// chunksPerWorker splits a phase finer than one chunk per worker so uneven
// rows do not leave workers idle.
const chunksPerWorker = 4

// parallel calls fn for every position in [0, n) and returns once all calls
// have finished, which makes it the barrier between two phases.
func (e *Engine) parallel(ctx context.Context, n int, fn func(i int) error) error {
	workers := min(e.opts.workers, n)
	if workers <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	chunk := (n + workers*chunksPerWorker - 1) / (workers * chunksPerWorker)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

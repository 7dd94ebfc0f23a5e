package ea

import (
	"context"

	cpool "github.com/sourcegraph/conc/pool"
)

// Mapper runs fn for every index in [0, n). Implementations may run calls
// concurrently; callers write results by index, so output order always
// matches input order. The first error is returned.
type Mapper func(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error

// SerialMapper runs fn for each index in turn on the calling goroutine.
func SerialMapper(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	for i := range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// ParallelMapper fans calls out to at most workers goroutines. The first
// failing call cancels the context passed to the rest.
func ParallelMapper(workers int) Mapper {
	if workers < 1 {
		workers = 1
	}
	return func(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
		p := cpool.New().
			WithContext(ctx).
			WithCancelOnError().
			WithFirstError().
			WithMaxGoroutines(workers)
		for i := range n {
			p.Go(func(ctx context.Context) error {
				return fn(ctx, i)
			})
		}
		return p.Wait()
	}
}

// Map applies fn to every item through m and returns the results in input
// order.
func Map[T, R any](ctx context.Context, m Mapper, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	err := m(ctx, len(items), func(ctx context.Context, i int) error {
		r, err := fn(ctx, items[i])
		if err != nil {
			return err
		}
		out[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

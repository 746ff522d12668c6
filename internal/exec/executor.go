// Package exec implements the ConcurrentExecutor: driving a bounded
// worker pool over a list of candidate files, reassembling per-file results in the
// original (walker) order, and honoring cooperative cancellation — a result cap reached
// or the caller's context expiring stops new dispatch but never kills an in-flight file.
package exec

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the executor's default worker bound.
const DefaultConcurrency = 10

// Executor drives Work functions over a slice of items with bounded parallelism.
type Executor struct {
	concurrency int
}

// New builds an Executor with the given worker bound; concurrency <= 0 uses the default.
func New(concurrency int) *Executor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Executor{concurrency: concurrency}
}

// Work processes one item and returns its result, or an error that is recorded against
// that item but does not abort sibling items (per-file failures are non-fatal).
type Work[T, R any] func(ctx context.Context, item T) (R, error)

// Result pairs an item's outcome with whether it ran at all — Started is false for an
// item dropped by cooperative cancellation before it was ever dispatched.
type Result[R any] struct {
	Value   R
	Err     error
	Started bool
}

// StopFunc reports whether dispatch of further items should halt, checked before each
// dispatch — e.g. a response-size cap already reached by results collected so far.
type StopFunc func() bool

// Run executes work over items with e's concurrency bound and returns results in input
// order regardless of completion order. Already-dispatched items always run to
// completion; ctx cancellation or stop returning true only stops *new* dispatch —
// items already in flight finish rather than being force-killed.
func (e *Executor) Run(ctx context.Context, items []any, work func(ctx context.Context, item any) (any, error), stop StopFunc) []Result[any] {
	results := make([]Result[any], len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		if stop != nil && stop() {
			break
		}
		i, item := i, item
		results[i].Started = true
		g.Go(func() error {
			val, err := work(gctx, item)
			results[i].Value, results[i].Err = val, err
			return nil // a per-file error never aborts sibling work
		})
	}
	_ = g.Wait()
	return results
}

// RunTyped is a generic convenience wrapper around Run for callers with concrete item
// and result types.
func RunTyped[T, R any](e *Executor, ctx context.Context, items []T, work Work[T, R], stop StopFunc) []Result[R] {
	boxed := make([]any, len(items))
	for i, item := range items {
		boxed[i] = item
	}
	raw := e.Run(ctx, boxed, func(ctx context.Context, item any) (any, error) {
		return work(ctx, item.(T))
	}, stop)

	out := make([]Result[R], len(raw))
	for i, r := range raw {
		out[i].Started = r.Started
		out[i].Err = r.Err
		if r.Started {
			if v, ok := r.Value.(R); ok {
				out[i].Value = v
			}
		}
	}
	return out
}

// Package fanout runs independent fetches concurrently and keeps every outcome.
// One failing task never cancels or hides the others.
package fanout

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one named task.
type Result struct {
	Err      error
	Duration time.Duration
}

// Results maps task name to outcome.
type Results map[string]Result

// Group is a bounded settled fan-out.
type Group struct {
	ctx context.Context
	eg  errgroup.Group

	mu      sync.Mutex
	results Results
}

// New returns a Group running at most limit tasks at once (limit <= 0 means unbounded).
func New(ctx context.Context, limit int) *Group {
	g := &Group{ctx: ctx, results: make(Results)}
	if limit > 0 {
		g.eg.SetLimit(limit)
	}
	return g
}

// Go schedules fn. Task names must be unique within a group.
func (g *Group) Go(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		start := time.Now()
		var err error
		if ctxErr := g.ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = fn(g.ctx)
		}

		g.mu.Lock()
		g.results[name] = Result{Err: err, Duration: time.Since(start)}
		g.mu.Unlock()
		// Always nil: errgroup must not short-circuit siblings.
		return nil
	})
}

// Wait blocks until every task finished and returns all outcomes.
func (g *Group) Wait() Results {
	_ = g.eg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(Results, len(g.results))
	for k, v := range g.results {
		out[k] = v
	}
	return out
}

// OK reports whether the named task ran and succeeded.
func (r Results) OK(name string) bool {
	res, ok := r[name]
	return ok && res.Err == nil
}

// Err returns the named task's error, nil if it succeeded or never ran.
func (r Results) Err(name string) error {
	return r[name].Err
}

// Failed lists failing task names, sorted.
func (r Results) Failed() []string {
	var names []string
	for name, res := range r {
		if res.Err != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Any reports whether some task failed with an error matching target.
func (r Results) Any(target error) bool {
	for _, res := range r {
		if res.Err != nil && errors.Is(res.Err, target) {
			return true
		}
	}
	return false
}

// Errors maps failing task names to their message, for per-section display.
func (r Results) Errors() map[string]string {
	out := map[string]string{}
	for name, res := range r {
		if res.Err != nil {
			out[name] = res.Err.Error()
		}
	}
	return out
}

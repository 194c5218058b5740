// Package scheduler fans a collection run out across teams, then within
// each team across repositories and persons, bounding concurrency at each
// layer independently and propagating cancellation cooperatively.
package scheduler

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Limits bounds concurrency at each fan-out layer.
type Limits struct {
	Teams   int
	Repos   int
	Persons int
}

// DefaultLimits mirrors internal/config's scheduler defaults so callers
// that build a Scheduler directly (tests, tools) get sane behavior without
// reading config.
var DefaultLimits = Limits{Teams: 4, Repos: 8, Persons: 16}

// Scheduler runs bounded-parallel fan-out work with cooperative cancellation:
// once ctx is cancelled no new work is dispatched, though already-running
// workers are not interrupted. A worker's error does not stop dispatch.
type Scheduler struct {
	limits Limits
}

// New builds a Scheduler with the given layer concurrency limits. A
// non-positive field falls back to DefaultLimits' corresponding value.
func New(limits Limits) *Scheduler {
	if limits.Teams <= 0 {
		limits.Teams = DefaultLimits.Teams
	}

	if limits.Repos <= 0 {
		limits.Repos = DefaultLimits.Repos
	}

	if limits.Persons <= 0 {
		limits.Persons = DefaultLimits.Persons
	}

	return &Scheduler{limits: limits}
}

// RunTeams runs fn once per item in items, bounded to the Teams limit. It
// collects every non-nil error into a joined error rather than stopping at
// the first one, since one team's failure must not cancel the rest (see
// domain.DegradedResult / partial-result policy).
func (s *Scheduler) RunTeams(ctx context.Context, items []string, fn func(ctx context.Context, team string) error) error {
	return fanOut(ctx, items, s.limits.Teams, fn)
}

// RunRepos runs fn once per repository, bounded to the Repos limit.
func (s *Scheduler) RunRepos(ctx context.Context, items []string, fn func(ctx context.Context, repo string) error) error {
	return fanOut(ctx, items, s.limits.Repos, fn)
}

// RunPersons runs fn once per person login, bounded to the Persons limit.
func (s *Scheduler) RunPersons(ctx context.Context, items []string, fn func(ctx context.Context, login string) error) error {
	return fanOut(ctx, items, s.limits.Persons, fn)
}

// fanOut runs fn across items with at most limit concurrent invocations.
// Errors from individual items are gathered, not short-circuited: a single
// team or repo failing must not prevent the rest of the batch from
// completing, per the collector's partial-result policy. Context
// cancellation (including ctrl-C) still stops dispatch of new work.
func fanOut[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T) error) error {
	sem := semaphore.NewWeighted(int64(limit))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		item := item

		wg.Add(1)

		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if err := fn(ctx, item); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	return errors.Join(errs...)
}

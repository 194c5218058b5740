package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunTeams_allSucceed(t *testing.T) {
	s := New(Limits{Teams: 2})

	var count int32

	err := s.RunTeams(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, team string) error {
		atomic.AddInt32(&count, 1)

		return nil
	})

	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestScheduler_RunTeams_oneFailureDoesNotStopOthers(t *testing.T) {
	s := New(Limits{Teams: 3})

	var count int32

	err := s.RunTeams(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, team string) error {
		atomic.AddInt32(&count, 1)

		if team == "b" {
			return errors.New("boom")
		}

		return nil
	})

	require.Error(t, err)
	assert.EqualValues(t, 3, count)
}

func TestScheduler_boundsConcurrency(t *testing.T) {
	s := New(Limits{Repos: 2})

	var inFlight, maxInFlight int32

	items := make([]string, 10)
	for i := range items {
		items[i] = "r"
	}

	_ = s.RunRepos(context.Background(), items, func(ctx context.Context, repo string) error {
		n := atomic.AddInt32(&inFlight, 1)

		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}

		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)

		return nil
	})

	assert.LessOrEqual(t, maxInFlight, int32(2))
}

func TestScheduler_defaultsWhenNonPositive(t *testing.T) {
	s := New(Limits{})
	assert.Equal(t, DefaultLimits, s.limits)
}

func TestScheduler_stopsOnCancellation(t *testing.T) {
	s := New(Limits{Persons: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var count int32

	items := make([]string, 5)
	_ = s.RunPersons(ctx, items, func(ctx context.Context, login string) error {
		atomic.AddInt32(&count, 1)

		return nil
	})

	assert.Zero(t, count)
}

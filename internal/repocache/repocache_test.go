package repocache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PutGet(t *testing.T) {
	c := New(t.TempDir())

	_, ok := c.Get("payments")
	assert.False(t, ok)

	require.NoError(t, c.Put("payments", []string{"acme/payments", "acme/ledger"}))

	repos, ok := c.Get("payments")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"acme/payments", "acme/ledger"}, repos)
}

func TestCache_ExpiresAfterMaxAge(t *testing.T) {
	c := New(t.TempDir())
	c.MaxAge = time.Millisecond

	require.NoError(t, c.Put("payments", []string{"acme/payments"}))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("payments")
	assert.False(t, ok)
}

func TestCache_InvalidateForcesMiss(t *testing.T) {
	c := New(t.TempDir())
	require.NoError(t, c.Put("payments", []string{"acme/payments"}))
	require.NoError(t, c.Invalidate("payments"))

	_, ok := c.Get("payments")
	assert.False(t, ok)
}

func TestCache_DifferentTeamsIsolated(t *testing.T) {
	c := New(t.TempDir())
	require.NoError(t, c.Put("payments", []string{"acme/payments"}))
	require.NoError(t, c.Put("platform", []string{"acme/infra"}))

	repos, ok := c.Get("platform")
	require.True(t, ok)
	assert.Equal(t, []string{"acme/infra"}, repos)
}

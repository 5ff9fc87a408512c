package cacheutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *BadgerCache {
	t.Helper()
	c, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestQueryMissThenHit(t *testing.T) {
	c := openTestCache(t)

	_, _, found, err := c.GetQuery("query:deadbeef")
	require.NoError(t, err)
	assert.False(t, found)

	entry := &Entry{Events: nil, EOSE: true}
	require.NoError(t, c.PutQuery("query:deadbeef", entry, 300))

	got, age, found, err := c.GetQuery("query:deadbeef")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.EOSE)
	assert.GreaterOrEqual(t, age, int64(0))
}

func TestStatusOverwritesOnSecondWrite(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.SetStatus("abc", &PublishStatus{Status: "attempt_1", Attempts: 1}))
	require.NoError(t, c.SetStatus("abc", &PublishStatus{Status: "published", Attempts: 1, VerifiedAt: "2026-01-01T00:00:00Z"}))

	got, found, err := c.GetStatus("abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "published", got.Status)
}

func TestStatusMissingIsNotFound(t *testing.T) {
	c := openTestCache(t)
	_, found, err := c.GetStatus("nope")
	require.NoError(t, err)
	assert.False(t, found)
}

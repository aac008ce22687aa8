package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLookup struct {
	calls int
	err   error
}

func (c *countingLookup) LookupSong(_ context.Context, title, _ string, duration float64) (string, string, bool, error) {
	c.calls++
	if c.err != nil {
		return "", "", false, c.err
	}
	if title == "City of Blinding Lights" && duration == 326.0 {
		return "SO1", "AR1", true, nil
	}
	return "", "", false, nil
}

func TestCachedLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	next := &countingLookup{}
	c := NewCachedLookup()
	l := c.Through(next)

	for i := 0; i < 3; i++ {
		s, a, ok, err := l.LookupSong(ctx, "City of Blinding Lights", "U2", 326.0)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "SO1", s)
		assert.Equal(t, "AR1", a)
	}
	_, _, ok, err := l.LookupSong(ctx, "City of Blinding Lights", "U2", 326.01)
	require.NoError(t, err)
	assert.False(t, ok, "different duration is a different key")
	_, _, ok, _ = l.LookupSong(ctx, "City of Blinding Lights", "U2", 326.01)
	assert.False(t, ok)

	assert.Equal(t, 2, next.calls)
	hits, misses := c.Stats()
	assert.Equal(t, int64(3), hits)
	assert.Equal(t, int64(2), misses)
}

func TestCachedLookup_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	next := &countingLookup{err: errors.New("down")}
	l := NewCachedLookup().Through(next)

	for i := 0; i < 2; i++ {
		_, _, _, err := l.LookupSong(context.Background(), "x", "y", 1)
		require.Error(t, err)
	}
	assert.Equal(t, 2, next.calls)
}

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitEnforced(t *testing.T) {
	l := NewLimiter(NewMemStore(), 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := l.Allow("alice")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i)
	}
	ok, err := l.Allow("alice")
	require.NoError(t, err)
	assert.False(t, ok)

	// other keys are unaffected
	ok, err = l.Allow("bob")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWindowRollover(t *testing.T) {
	l := NewLimiter(NewMemStore(), 1, time.Minute)

	base := time.Date(2026, 8, 29, 12, 0, 30, 0, time.UTC)
	l.now = func() time.Time { return base }

	ok, err := l.Allow("alice")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Allow("alice")
	require.NoError(t, err)
	assert.False(t, ok)

	l.now = func() time.Time { return base.Add(time.Minute) }
	ok, err = l.Allow("alice")
	require.NoError(t, err)
	assert.True(t, ok, "new window resets the counter")
}

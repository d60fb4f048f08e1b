package magiclink

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueConsume(t *testing.T) {
	reg := NewRegistry(NewMemStore(), DefaultTTL)

	token, err := reg.Issue("acme", "dave", "Dave")
	require.NoError(t, err)
	assert.Len(t, token, 64)

	l, err := reg.Consume(token)
	require.NoError(t, err)
	assert.Equal(t, "acme", l.CompanyID)
	assert.Equal(t, "dave", l.UserID)
	assert.Equal(t, "Dave", l.Name)
	assert.False(t, l.Active)
	assert.False(t, l.UsedAt.IsZero())
}

func TestConsumeUnknown(t *testing.T) {
	reg := NewRegistry(NewMemStore(), DefaultTTL)
	_, err := reg.Consume("deadbeef")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReuseRejected(t *testing.T) {
	reg := NewRegistry(NewMemStore(), DefaultTTL)
	token, err := reg.Issue("acme", "dave", "Dave")
	require.NoError(t, err)

	_, err = reg.Consume(token)
	require.NoError(t, err)

	_, err = reg.Consume(token)
	assert.True(t, errors.Is(err, ErrAlreadyUsed))
}

func TestExpiry(t *testing.T) {
	reg := NewRegistry(NewMemStore(), time.Hour)
	token, err := reg.Issue("acme", "dave", "Dave")
	require.NoError(t, err)

	reg.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = reg.Consume(token)
	assert.True(t, errors.Is(err, ErrExpired))
}

func TestPurgeExpired(t *testing.T) {
	reg := NewRegistry(NewMemStore(), time.Hour)

	used, err := reg.Issue("acme", "dave", "Dave")
	require.NoError(t, err)
	_, err = reg.Consume(used)
	require.NoError(t, err)

	_, err = reg.Issue("acme", "erin", "Erin")
	require.NoError(t, err)

	// the redeemed link is swept, the live one survives
	n, err := reg.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// after the window everything goes
	reg.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = reg.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConcurrentConsume(t *testing.T) {
	reg := NewRegistry(NewMemStore(), DefaultTTL)
	token, err := reg.Issue("acme", "dave", "Dave")
	require.NoError(t, err)

	const workers = 32
	var ok, reused int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := reg.Consume(token)
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case errors.Is(err, ErrAlreadyUsed):
				atomic.AddInt64(&reused, 1)
			default:
				t.Errorf("unexpected outcome: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), ok, "exactly one redemption must win")
	assert.Equal(t, int64(workers-1), reused)
}

func TestBoltStore(t *testing.T) {
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "links.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	reg := NewRegistry(store, time.Hour)

	token, err := reg.Issue("acme", "dave", "Dave")
	require.NoError(t, err)

	l, err := reg.Consume(token)
	require.NoError(t, err)
	assert.Equal(t, "dave", l.UserID)

	_, err = reg.Consume(token)
	assert.True(t, errors.Is(err, ErrAlreadyUsed))

	_, err = reg.Consume("deadbeef")
	assert.True(t, errors.Is(err, ErrNotFound))

	n, err := reg.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

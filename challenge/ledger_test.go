package challenge

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
	ledger := NewLedger(NewMemStore(), DefaultTTL)

	id, err := ledger.Issue()
	require.NoError(t, err)
	assert.Len(t, id, 32)

	rec, err := ledger.Consume(id, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, StatusUsed, rec.Status)
	assert.Equal(t, "0xabc", rec.Commitment)
	assert.False(t, rec.UsedAt.IsZero())
}

func TestConsumeUnknown(t *testing.T) {
	ledger := NewLedger(NewMemStore(), DefaultTTL)
	_, err := ledger.Consume("deadbeef", "0x1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReplayRejected(t *testing.T) {
	ledger := NewLedger(NewMemStore(), DefaultTTL)
	id, err := ledger.Issue()
	require.NoError(t, err)

	_, err = ledger.Consume(id, "0x1")
	require.NoError(t, err)

	_, err = ledger.Consume(id, "0x1")
	assert.True(t, errors.Is(err, ErrAlreadyUsed))
}

func TestExpiry(t *testing.T) {
	ledger := NewLedger(NewMemStore(), time.Minute)
	id, err := ledger.Issue()
	require.NoError(t, err)

	ledger.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = ledger.Consume(id, "0x1")
	assert.True(t, errors.Is(err, ErrExpired))
}

func TestPurgeExpired(t *testing.T) {
	store := NewMemStore()
	ledger := NewLedger(store, time.Minute)

	used, err := ledger.Issue()
	require.NoError(t, err)
	_, err = ledger.Consume(used, "0x1")
	require.NoError(t, err)

	_, err = ledger.Issue()
	require.NoError(t, err)

	// fresh pending record survives, used one is swept
	n, err := ledger.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// after the window everything goes
	ledger.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	n, err = ledger.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConcurrentConsume(t *testing.T) {
	ledger := NewLedger(NewMemStore(), DefaultTTL)
	id, err := ledger.Issue()
	require.NoError(t, err)

	const workers = 32
	var ok, replayed int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := ledger.Consume(id, "0x1")
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case errors.Is(err, ErrAlreadyUsed):
				atomic.AddInt64(&replayed, 1)
			default:
				t.Errorf("unexpected outcome: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), ok, "exactly one consumer must win")
	assert.Equal(t, int64(workers-1), replayed)
}

func TestBoltStore(t *testing.T) {
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "challenges.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ledger := NewLedger(store, time.Minute)

	id, err := ledger.Issue()
	require.NoError(t, err)

	rec, err := ledger.Consume(id, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, StatusUsed, rec.Status)

	_, err = ledger.Consume(id, "0xabc")
	assert.True(t, errors.Is(err, ErrAlreadyUsed))

	_, err = ledger.Consume("deadbeef", "0x1")
	assert.True(t, errors.Is(err, ErrNotFound))

	n, err := ledger.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

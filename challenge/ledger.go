// Package challenge issues single-use challenge nonces and enforces their
// exactly-once consumption, the replay-protection core of the authentication
// protocol.
package challenge

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// Status of a challenge record.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusUsed    Status = "USED"
)

// DefaultTTL is how long an unconsumed challenge stays valid.
const DefaultTTL = 5 * time.Minute

var (
	ErrNotFound    = errors.New("unknown challenge")
	ErrAlreadyUsed = errors.New("challenge already used")
	ErrExpired     = errors.New("challenge expired")
)

// Record is the persisted state of one issued challenge. A record transitions
// PENDING -> USED exactly once; Commitment is set at consumption time to the
// commitment the proof was submitted against.
type Record struct {
	ID         string
	Status     Status
	CreatedAt  time.Time
	UsedAt     time.Time
	Commitment string
}

// Store is the narrow persistence contract of the ledger. Consume must be
// atomic with respect to concurrent calls for the same id: when two callers
// race, exactly one gets the record back and the other gets ErrAlreadyUsed.
// A plain read-then-write implementation is a replay vulnerability.
type Store interface {
	// Insert persists a fresh pending record.
	Insert(rec *Record) error

	// Consume transitions the record from pending to used, stamping usedAt
	// and the commitment. Records created before oldest are reported as
	// ErrExpired even while still pending; the age check happens inside the
	// same critical section as the status check.
	Consume(id string, usedAt, oldest time.Time, commitment string) (*Record, error)

	// PurgeExpired deletes used records and pending records created before
	// cutoff, returning how many were removed.
	PurgeExpired(cutoff time.Time) (int, error)
}

// Ledger owns the nonce lifecycle: issuance, single consumption, expiry.
type Ledger struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewLedger(store Store, ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ledger{store: store, ttl: ttl, now: time.Now}
}

// Issue generates a fresh unguessable challenge id, persists it as pending
// and returns it. Storage failures are propagated wrapped; issuance is safe
// to retry since every attempt uses a new id.
func (l *Ledger) Issue() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", errors.WrapPrefix(err, "failed to generate challenge", 0)
	}
	id := hex.EncodeToString(buf[:])

	rec := &Record{
		ID:        id,
		Status:    StatusPending,
		CreatedAt: l.now(),
	}
	if err := l.store.Insert(rec); err != nil {
		return "", errors.WrapPrefix(err, "failed to persist challenge", 0)
	}
	return id, nil
}

// Consume atomically marks the challenge used, binding it to the commitment
// it was consumed against. It must be called before proof verification; a
// consumed nonce is burnt whether or not the proof turns out valid, so a
// failed proof cannot be retried against the same challenge.
func (l *Ledger) Consume(id, commitment string) (*Record, error) {
	now := l.now()
	rec, err := l.store.Consume(id, now, now.Add(-l.ttl), commitment)
	switch {
	case errors.Is(err, ErrAlreadyUsed):
		if Logger != nil {
			Logger.WithFields(logrus.Fields{"challenge": id}).
				Error("replay detected: challenge consumed twice")
		}
		return nil, err
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired):
		if Logger != nil {
			Logger.WithFields(logrus.Fields{"challenge": id}).
				Warn("attempt to consume invalid challenge")
		}
		return nil, err
	case err != nil:
		return nil, errors.WrapPrefix(err, "challenge store failure", 0)
	}
	return rec, nil
}

// PurgeExpired removes used records and pending records older than the TTL.
func (l *Ledger) PurgeExpired() (int, error) {
	return l.store.PurgeExpired(l.now().Add(-l.ttl))
}

// TTL returns the validity window of issued challenges.
func (l *Ledger) TTL() time.Duration {
	return l.ttl
}

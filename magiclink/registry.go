// Package magiclink manages single-use login links: unguessable tokens handed
// out through a side channel that stand in for the primary credential exactly
// once. Link delivery (email or otherwise) is an external collaborator; this
// package only owns the token lifecycle.
package magiclink

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// DefaultTTL is how long an unredeemed link stays valid.
const DefaultTTL = 24 * time.Hour

var (
	ErrNotFound    = errors.New("unknown magic link")
	ErrAlreadyUsed = errors.New("magic link already used")
	ErrExpired     = errors.New("magic link expired")
)

// Link is the persisted state of one issued login link. Active flips to false
// exactly once, at redemption. The account may not exist yet; a link doubles
// as an invitation, carrying the display name to enrol with.
type Link struct {
	Token     string
	CompanyID string
	UserID    string
	Name      string
	Active    bool
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    time.Time
}

// Store is the persistence contract of the registry. Consume must be atomic
// per token: of two racing redemptions exactly one gets the link back, the
// other gets ErrAlreadyUsed. The expiry check happens inside the same
// critical section as the active check.
type Store interface {
	// Insert persists a fresh active link.
	Insert(l *Link) error

	// Consume deactivates the link, stamping usedAt. Expired links are
	// reported as ErrExpired even while still active.
	Consume(token string, usedAt time.Time) (*Link, error)

	// PurgeExpired deletes redeemed links and active links expired before
	// cutoff, returning how many were removed.
	PurgeExpired(cutoff time.Time) (int, error)
}

// Registry owns the link lifecycle: issuance, single redemption, expiry.
type Registry struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewRegistry(store Store, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{store: store, ttl: ttl, now: time.Now}
}

// Issue creates a fresh link for the given account and returns its token.
func (r *Registry) Issue(companyID, userID, name string) (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", errors.WrapPrefix(err, "failed to generate link token", 0)
	}
	token := hex.EncodeToString(buf[:])

	now := r.now()
	l := &Link{
		Token:     token,
		CompanyID: companyID,
		UserID:    userID,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}
	if err := r.store.Insert(l); err != nil {
		return "", errors.WrapPrefix(err, "failed to persist link", 0)
	}
	return token, nil
}

// Consume atomically deactivates the link and returns it. A link is burnt on
// its first redemption; later attempts get ErrAlreadyUsed.
func (r *Registry) Consume(token string) (*Link, error) {
	l, err := r.store.Consume(token, r.now())
	switch {
	case errors.Is(err, ErrAlreadyUsed):
		if Logger != nil {
			Logger.WithFields(logrus.Fields{"link": token}).
				Error("magic link redeemed twice")
		}
		return nil, err
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired):
		if Logger != nil {
			Logger.WithFields(logrus.Fields{"link": token}).
				Warn("attempt to redeem invalid magic link")
		}
		return nil, err
	case err != nil:
		return nil, errors.WrapPrefix(err, "link store failure", 0)
	}
	return l, nil
}

// PurgeExpired removes redeemed links and links past their expiry.
func (r *Registry) PurgeExpired() (int, error) {
	return r.store.PurgeExpired(r.now())
}

// TTL returns the validity window of issued links.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

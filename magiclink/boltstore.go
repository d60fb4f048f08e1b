package magiclink

import (
	"time"

	"github.com/go-errors/errors"
	"github.com/timshannon/bolthold"
	bolt "go.etcd.io/bbolt"
)

// BoltStore is a bolthold-backed Store. Consume runs inside a bolt update
// transaction, which serializes it against concurrent redemption attempts on
// the same token.
type BoltStore struct {
	bolt *bolthold.Store
}

func OpenBoltStore(path string) (*BoltStore, error) {
	b, err := bolthold.Open(path, 0600, &bolthold.Options{Options: &bolt.Options{Timeout: 1 * time.Second}})
	if err != nil {
		return nil, errors.WrapPrefix(err, "failed to open link store", 0)
	}
	return &BoltStore{bolt: b}, nil
}

func (s *BoltStore) Close() error {
	return s.bolt.Close()
}

func (s *BoltStore) Insert(l *Link) error {
	return s.bolt.Insert(l.Token, l)
}

func (s *BoltStore) Consume(token string, usedAt time.Time) (*Link, error) {
	var l Link
	err := s.bolt.Bolt().Update(func(tx *bolt.Tx) error {
		if err := s.bolt.TxGet(tx, token, &l); err != nil {
			if err == bolthold.ErrNotFound {
				return ErrNotFound
			}
			return err
		}
		if !l.Active {
			return ErrAlreadyUsed
		}
		if l.ExpiresAt.Before(usedAt) {
			return ErrExpired
		}
		l.Active = false
		l.UsedAt = usedAt
		return s.bolt.TxUpdate(tx, token, &l)
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *BoltStore) PurgeExpired(cutoff time.Time) (int, error) {
	n := 0
	err := s.bolt.Bolt().Update(func(tx *bolt.Tx) error {
		var stale []Link
		query := bolthold.Where("Active").Eq(false).Or(bolthold.Where("ExpiresAt").Lt(cutoff))
		if err := s.bolt.TxFind(tx, &stale, query); err != nil {
			return err
		}
		for i := range stale {
			if err := s.bolt.TxDelete(tx, stale[i].Token, &Link{}); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

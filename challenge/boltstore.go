package challenge

import (
	"time"

	"github.com/go-errors/errors"
	"github.com/timshannon/bolthold"
	bolt "go.etcd.io/bbolt"
)

// BoltStore is a bolthold-backed Store. Consume runs inside a bolt update
// transaction, which serializes it against concurrent consumption attempts
// on the same record.
type BoltStore struct {
	bolt *bolthold.Store
}

func OpenBoltStore(path string) (*BoltStore, error) {
	b, err := bolthold.Open(path, 0600, &bolthold.Options{Options: &bolt.Options{Timeout: 1 * time.Second}})
	if err != nil {
		return nil, errors.WrapPrefix(err, "failed to open challenge store", 0)
	}
	return &BoltStore{bolt: b}, nil
}

func (s *BoltStore) Close() error {
	return s.bolt.Close()
}

func (s *BoltStore) Insert(rec *Record) error {
	return s.bolt.Insert(rec.ID, rec)
}

func (s *BoltStore) Consume(id string, usedAt, oldest time.Time, commitment string) (*Record, error) {
	var rec Record
	err := s.bolt.Bolt().Update(func(tx *bolt.Tx) error {
		if err := s.bolt.TxGet(tx, id, &rec); err != nil {
			if err == bolthold.ErrNotFound {
				return ErrNotFound
			}
			return err
		}
		if rec.Status == StatusUsed {
			return ErrAlreadyUsed
		}
		if rec.CreatedAt.Before(oldest) {
			return ErrExpired
		}
		rec.Status = StatusUsed
		rec.UsedAt = usedAt
		rec.Commitment = commitment
		return s.bolt.TxUpdate(tx, id, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BoltStore) PurgeExpired(cutoff time.Time) (int, error) {
	n := 0
	err := s.bolt.Bolt().Update(func(tx *bolt.Tx) error {
		var stale []Record
		query := bolthold.Where("Status").Eq(StatusUsed).Or(bolthold.Where("CreatedAt").Lt(cutoff))
		if err := s.bolt.TxFind(tx, &stale, query); err != nil {
			return err
		}
		for i := range stale {
			if err := s.bolt.TxDelete(tx, stale[i].ID, &Record{}); err != nil {
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

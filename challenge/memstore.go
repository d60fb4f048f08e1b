package challenge

import (
	"sync"
	"time"
)

// MemStore is an in-memory Store. The mutex makes Consume atomic within one
// process; it does not coordinate across instances, so a multi-instance
// deployment needs a transactional shared store such as BoltStore on shared
// storage or an equivalent external database.
type MemStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]*Record)}
}

func (s *MemStore) Insert(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *MemStore) Consume(id string, usedAt, oldest time.Time, commitment string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Status == StatusUsed {
		return nil, ErrAlreadyUsed
	}
	if rec.CreatedAt.Before(oldest) {
		return nil, ErrExpired
	}

	rec.Status = StatusUsed
	rec.UsedAt = usedAt
	rec.Commitment = commitment

	cp := *rec
	return &cp, nil
}

func (s *MemStore) PurgeExpired(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, rec := range s.records {
		if rec.Status == StatusUsed || rec.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

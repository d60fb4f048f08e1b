package magiclink

import (
	"sync"
	"time"
)

// MemStore is an in-memory Store. The mutex makes Consume atomic within one
// process; multi-instance deployments need a transactional shared store such
// as BoltStore on shared storage or an equivalent external database.
type MemStore struct {
	mu    sync.Mutex
	links map[string]*Link
}

func NewMemStore() *MemStore {
	return &MemStore{links: make(map[string]*Link)}
}

func (s *MemStore) Insert(l *Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.links[l.Token] = &cp
	return nil
}

func (s *MemStore) Consume(token string, usedAt time.Time) (*Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.links[token]
	if !ok {
		return nil, ErrNotFound
	}
	if !l.Active {
		return nil, ErrAlreadyUsed
	}
	if l.ExpiresAt.Before(usedAt) {
		return nil, ErrExpired
	}

	l.Active = false
	l.UsedAt = usedAt

	cp := *l
	return &cp, nil
}

func (s *MemStore) PurgeExpired(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for token, l := range s.links {
		if !l.Active || l.ExpiresAt.Before(cutoff) {
			delete(s.links, token)
			n++
		}
	}
	return n, nil
}

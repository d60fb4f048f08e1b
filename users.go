package zkauth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/go-errors/errors"
)

// User is the stored credential record of one account. Phrase holds a legacy
// plaintext secret that gets upgraded to PhraseHash on first successful
// login; a record with neither set is a fresh account awaiting first-login
// enrolment.
type User struct {
	CompanyID        string
	UserID           string
	DisplayName      string
	Role             string
	PhraseHash       string
	Salt             string
	Phrase           string
	BiometricProfile []byte
}

// Company holds per-tenant settings. Threshold <= 0 means the default
// applies.
type Company struct {
	ID        string
	Name      string
	Threshold float64
}

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrCompanyNotFound = errors.New("company not found")
)

// UserStore is the contract of the external user document store.
type UserStore interface {
	Get(companyID, userID string) (*User, error)
	Update(u *User) error
}

// CompanyStore is the contract of the external tenant document store.
type CompanyStore interface {
	Get(id string) (*Company, error)
}

// HashPhrase computes the stored form of a login phrase: hex sha256 over
// phrase followed by salt.
func HashPhrase(phrase, salt string) string {
	sum := sha256.Sum256([]byte(phrase + salt))
	return hex.EncodeToString(sum[:])
}

// NewSalt returns a fresh random hex salt.
func NewSalt() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", errors.WrapPrefix(err, "failed to generate salt", 0)
	}
	return hex.EncodeToString(buf[:]), nil
}

// phraseMatches compares a presented phrase against the stored hash without
// leaking the comparison through timing.
func phraseMatches(phrase string, u *User) bool {
	if u.PhraseHash == "" {
		return false
	}
	return hmac.Equal([]byte(HashPhrase(phrase, u.Salt)), []byte(u.PhraseHash))
}

// MemUserStore is an in-memory UserStore for tests and the single-node
// daemon.
type MemUserStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewMemUserStore(users ...*User) *MemUserStore {
	s := &MemUserStore{users: make(map[string]*User)}
	for _, u := range users {
		cp := *u
		s.users[u.CompanyID+"/"+u.UserID] = &cp
	}
	return s
}

func (s *MemUserStore) Get(companyID, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[companyID+"/"+userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemUserStore) Update(u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := u.CompanyID + "/" + u.UserID
	if _, ok := s.users[key]; !ok {
		return ErrUserNotFound
	}
	cp := *u
	s.users[key] = &cp
	return nil
}

// MemCompanyStore is an in-memory CompanyStore.
type MemCompanyStore struct {
	mu        sync.RWMutex
	companies map[string]*Company
}

func NewMemCompanyStore(companies ...*Company) *MemCompanyStore {
	s := &MemCompanyStore{companies: make(map[string]*Company)}
	for _, c := range companies {
		cp := *c
		s.companies[c.ID] = &cp
	}
	return s
}

func (s *MemCompanyStore) Get(id string) (*Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, ErrCompanyNotFound
	}
	cp := *c
	return &cp, nil
}

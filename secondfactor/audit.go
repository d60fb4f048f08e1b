package secondfactor

import (
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/multiformats/go-multihash"
	"github.com/timshannon/bolthold"
	bolt "go.etcd.io/bbolt"

	"github.com/biolock/zkauth/cbor"
)

// Outcome of one second-factor attempt.
type Outcome string

const (
	OutcomePass Outcome = "PASS"
	OutcomeFail Outcome = "FAIL"
)

// Method that produced the attempt.
type Method string

const (
	MethodBiometric Method = "BIOMETRIC"
	MethodPassword  Method = "PASSWORD"
)

// AuditRecord is one immutable entry of the second-factor audit trail.
// Score is nil for password attempts. Prev is the multihash of the previous
// record, linking the trail into an append-only chain.
type AuditRecord struct {
	Timestamp time.Time
	CompanyID string
	UserID    string
	Score     *float64
	Outcome   Outcome
	Method    Method
	Prev      []byte
}

// Hash returns the multihash of the record's deterministic CBOR encoding.
func (r *AuditRecord) Hash() (multihash.Multihash, error) {
	bts, err := cbor.Marshal(r)
	if err != nil {
		return nil, err
	}
	return multihash.Sum(bts, multihash.SHA2_256, -1)
}

// AuditLog persists the trail. Append sets Prev on the record before storing
// so that callers cannot break the chain.
type AuditLog interface {
	Append(rec *AuditRecord) error
	Head() (multihash.Multihash, error)
	Len() (int, error)
}

// MemAuditLog keeps the trail in memory, for tests and single-instance use.
type MemAuditLog struct {
	mu      sync.Mutex
	records []*AuditRecord
	head    multihash.Multihash
}

func NewMemAuditLog() *MemAuditLog {
	return &MemAuditLog{}
}

func (l *MemAuditLog) Append(rec *AuditRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec.Prev = l.head
	h, err := rec.Hash()
	if err != nil {
		return errors.WrapPrefix(err, "failed to hash audit record", 0)
	}
	cp := *rec
	l.records = append(l.records, &cp)
	l.head = h
	return nil
}

func (l *MemAuditLog) Head() (multihash.Multihash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head, nil
}

func (l *MemAuditLog) Len() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records), nil
}

// Records returns a copy of the trail.
func (l *MemAuditLog) Records() []*AuditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*AuditRecord, len(l.records))
	copy(out, l.records)
	return out
}

// auditHead is the bolt record tracking the chain head.
type auditHead struct {
	Index uint64
	Hash  []byte
}

const boltAuditHeadKey = "auditHead"

// BoltAuditLog persists the trail in a bolthold store; the append runs in one
// update transaction so the head pointer and the new record stay consistent
// under concurrent writers.
type BoltAuditLog struct {
	bolt *bolthold.Store
}

func OpenBoltAuditLog(path string) (*BoltAuditLog, error) {
	b, err := bolthold.Open(path, 0600, &bolthold.Options{Options: &bolt.Options{Timeout: 1 * time.Second}})
	if err != nil {
		return nil, errors.WrapPrefix(err, "failed to open audit store", 0)
	}
	return &BoltAuditLog{bolt: b}, nil
}

func (l *BoltAuditLog) Close() error {
	return l.bolt.Close()
}

func (l *BoltAuditLog) Append(rec *AuditRecord) error {
	return l.bolt.Bolt().Update(func(tx *bolt.Tx) error {
		var head auditHead
		err := l.bolt.TxGet(tx, boltAuditHeadKey, &head)
		if err != nil && err != bolthold.ErrNotFound {
			return err
		}

		rec.Prev = head.Hash
		h, err := rec.Hash()
		if err != nil {
			return err
		}

		if err = l.bolt.TxInsert(tx, head.Index, rec); err != nil {
			return err
		}
		return l.bolt.TxUpsert(tx, boltAuditHeadKey, &auditHead{Index: head.Index + 1, Hash: h})
	})
}

func (l *BoltAuditLog) Head() (multihash.Multihash, error) {
	var head auditHead
	err := l.bolt.Get(boltAuditHeadKey, &head)
	if err == bolthold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return head.Hash, nil
}

func (l *BoltAuditLog) Len() (int, error) {
	var head auditHead
	err := l.bolt.Get(boltAuditHeadKey, &head)
	if err == bolthold.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(head.Index), nil
}

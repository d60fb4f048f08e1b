package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/go-errors/errors"

	"github.com/biolock/zkauth/cbor"
)

// ErrInvalid is the uniform outcome for every token verification failure:
// malformed, tampered, expired and wrong-tier tokens are indistinguishable to
// the caller so that the verifier cannot be used as an oracle.
var ErrInvalid = errors.New("invalid session token")

// ErrWeakKey is returned by NewAuthority for missing or guessably short keys.
// A service receiving it must refuse to start rather than run insecurely.
var ErrWeakKey = errors.New("session signing key missing or too short")

const minKeyLen = 32

// Authority mints and verifies session tokens with a process-wide
// HMAC-SHA256 key loaded once at startup. A token is
// base64url(payload) "." base64url(mac) where the payload is deterministic
// CBOR, so the MAC input is canonical.
type Authority struct {
	key []byte
	now func() time.Time
}

func NewAuthority(key []byte) (*Authority, error) {
	if len(key) < minKeyLen {
		return nil, ErrWeakKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Authority{key: k, now: time.Now}, nil
}

// IssueIntent signs the given identity as an intent claim set, valid for
// IntentLifetime. IssuedAt and Expiry on the input are ignored and stamped
// here.
func (a *Authority) IssueIntent(c IntentClaims) (string, IntentClaims, error) {
	now := a.now()
	c.IssuedAt = now
	c.Expiry = now.Add(IntentLifetime)
	token, err := a.sign(payload{
		Kind:              kindIntent,
		CompanyID:         c.CompanyID,
		UserID:            c.UserID,
		Role:              c.Role,
		Name:              c.Name,
		BiometricVerified: false,
		IssuedAt:          c.IssuedAt.Unix(),
		Expiry:            c.Expiry.Unix(),
	})
	return token, c, err
}

// IssueVerified signs the given identity as a verified claim set, valid for
// VerifiedLifetime.
func (a *Authority) IssueVerified(c VerifiedClaims) (string, VerifiedClaims, error) {
	now := a.now()
	c.IssuedAt = now
	c.Expiry = now.Add(VerifiedLifetime)
	token, err := a.sign(payload{
		Kind:              kindVerified,
		CompanyID:         c.CompanyID,
		UserID:            c.UserID,
		Role:              c.Role,
		Name:              c.Name,
		BiometricVerified: true,
		Score:             c.Score,
		IssuedAt:          c.IssuedAt.Unix(),
		Expiry:            c.Expiry.Unix(),
	})
	return token, c, err
}

// VerifyIntent checks the token and returns its claims if it is a live
// intent token. Every failure is ErrInvalid.
func (a *Authority) VerifyIntent(token string) (*IntentClaims, error) {
	p, err := a.open(token, kindIntent)
	if err != nil {
		return nil, err
	}
	return &IntentClaims{
		CompanyID: p.CompanyID,
		UserID:    p.UserID,
		Role:      p.Role,
		Name:      p.Name,
		IssuedAt:  time.Unix(p.IssuedAt, 0),
		Expiry:    time.Unix(p.Expiry, 0),
	}, nil
}

// VerifyVerified checks the token and returns its claims if it is a live
// verified token. Every failure is ErrInvalid.
func (a *Authority) VerifyVerified(token string) (*VerifiedClaims, error) {
	p, err := a.open(token, kindVerified)
	if err != nil {
		return nil, err
	}
	return &VerifiedClaims{
		CompanyID: p.CompanyID,
		UserID:    p.UserID,
		Role:      p.Role,
		Name:      p.Name,
		Score:     p.Score,
		IssuedAt:  time.Unix(p.IssuedAt, 0),
		Expiry:    time.Unix(p.Expiry, 0),
	}, nil
}

func (a *Authority) sign(p payload) (string, error) {
	bts, err := cbor.Marshal(p)
	if err != nil {
		return "", errors.WrapPrefix(err, "failed to encode claims", 0)
	}
	return base64.RawURLEncoding.EncodeToString(bts) + "." +
		base64.RawURLEncoding.EncodeToString(a.mac(bts)), nil
}

// open verifies the MAC before decoding anything, so the CBOR decoder only
// ever sees authenticated bytes.
func (a *Authority) open(token, kind string) (*payload, error) {
	dot := strings.IndexByte(token, '.')
	if dot < 0 || strings.IndexByte(token[dot+1:], '.') >= 0 {
		return nil, ErrInvalid
	}
	bts, err := base64.RawURLEncoding.DecodeString(token[:dot])
	if err != nil {
		return nil, ErrInvalid
	}
	mac, err := base64.RawURLEncoding.DecodeString(token[dot+1:])
	if err != nil {
		return nil, ErrInvalid
	}
	if !hmac.Equal(mac, a.mac(bts)) {
		return nil, ErrInvalid
	}

	var p payload
	if err := cbor.Unmarshal(bts, &p); err != nil {
		return nil, ErrInvalid
	}
	if p.Kind != kind {
		return nil, ErrInvalid
	}
	if !a.now().Before(time.Unix(p.Expiry, 0)) {
		return nil, ErrInvalid
	}
	return &p, nil
}

func (a *Authority) mac(bts []byte) []byte {
	m := hmac.New(sha256.New, a.key)
	m.Write(bts)
	return m.Sum(nil)
}

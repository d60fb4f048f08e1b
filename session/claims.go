// Package session issues, verifies and upgrades the signed claims carried by
// clients. Claims come in two tiers: IntentClaims prove that the primary
// credential check succeeded, VerifiedClaims additionally prove the second
// factor. The two are distinct types so that code requiring a verified
// session cannot accidentally accept an intent token.
package session

import "time"

// Token lifetimes. An intent token only has to survive until the second
// factor completes; a verified token is the long-lived session.
const (
	IntentLifetime   = 10 * time.Minute
	VerifiedLifetime = 24 * time.Hour
)

// IntentClaims identify a user whose primary credential matched but whose
// second factor has not yet been checked. Never sufficient on its own for
// access to protected resources.
type IntentClaims struct {
	CompanyID string
	UserID    string
	Role      string
	Name      string
	IssuedAt  time.Time
	Expiry    time.Time
}

// VerifiedClaims identify a fully authenticated user. Issued exclusively by
// Authority.IssueVerified after the second factor passed; the only claim set
// that authorizes access to protected resources.
type VerifiedClaims struct {
	CompanyID string
	UserID    string
	Role      string
	Name      string
	Score     float64
	IssuedAt  time.Time
	Expiry    time.Time
}

// wire kinds; the payload also carries the biometricVerified flag for
// compatibility with clients that inspect it.
const (
	kindIntent   = "intent"
	kindVerified = "verified"
)

// payload is the CBOR wire form of a claim set.
type payload struct {
	Kind              string  `cbor:"kind"`
	CompanyID         string  `cbor:"companyId"`
	UserID            string  `cbor:"userId"`
	Role              string  `cbor:"role"`
	Name              string  `cbor:"name,omitempty"`
	BiometricVerified bool    `cbor:"biometricVerified"`
	Score             float64 `cbor:"score,omitempty"`
	IssuedAt          int64   `cbor:"iat"`
	Expiry            int64   `cbor:"exp"`
}

package zkauth

import (
	"github.com/go-errors/errors"

	"github.com/biolock/zkauth/challenge"
	"github.com/biolock/zkauth/session"
)

// The error taxonomy of the authentication core. Protocol failures are final:
// a failed proof must not be re-attempted with the same nonce, since the
// nonce is consumed before verification. Storage failures are the only class
// a caller may retry, and only for idempotent operations (issuance, not
// consumption).
var (
	// ErrValidation: a request field is missing or malformed.
	ErrValidation = errors.New("missing or malformed request field")

	// ErrInvalidCredentials: the primary credential check failed. Uniform for
	// unknown user and wrong secret.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProofInvalid: the sigma-protocol check failed. No detail beyond
	// pass/fail is ever attached.
	ErrProofInvalid = errors.New("proof verification failed")

	// ErrRateLimited: too many attempts for this identity in the window.
	ErrRateLimited = errors.New("too many attempts")

	// Challenge ledger outcomes surface unchanged so callers can
	// distinguish replay (high severity) from a stale or unknown nonce.
	ErrUnknownChallenge = challenge.ErrNotFound
	ErrReplayDetected   = challenge.ErrAlreadyUsed
	ErrChallengeExpired = challenge.ErrExpired

	// ErrSessionInvalid: uniform token verification failure.
	ErrSessionInvalid = session.ErrInvalid
)

// Package secondfactor decides whether an intent session may be upgraded to
// a verified one, based on a biometric similarity score or a password check,
// and records every attempt in an immutable audit trail.
package secondfactor

import (
	"fmt"
	"time"

	"github.com/go-errors/errors"

	"github.com/biolock/zkauth/session"
)

// DefaultThreshold is the accept threshold used when the tenant has not
// configured one.
const DefaultThreshold = 40

// Matcher is the black-box biometric collaborator. Compare returns a
// similarity score in [0, 100] between the enrolled template and the
// presented sample.
type Matcher interface {
	Compare(stored, presented []byte) (float64, error)
}

// ProfileSource gives the enforcer access to the second-factor material of
// the identity being upgraded. The stored biometric template never leaves
// this package.
type ProfileSource interface {
	// BiometricProfile returns the enrolled template, or ErrNoProfile.
	BiometricProfile(companyID, userID string) ([]byte, error)
	// CheckPassword reports whether the password matches the stored credential.
	CheckPassword(companyID, userID, password string) (bool, error)
	// Threshold returns the tenant's accept threshold; <= 0 means unset.
	Threshold(companyID string) (float64, error)
}

var ErrNoProfile = errors.New("no biometric profile enrolled")

// MismatchError reports a failed attempt together with the observed score
// and the threshold it missed, so the caller can surface both; it carries
// nothing derived from the stored template itself.
type MismatchError struct {
	Score     float64
	Threshold float64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("second factor mismatch: score %.1f below threshold %.1f", e.Score, e.Threshold)
}

// Evidence is the second-factor material presented by the client: exactly one
// of Password or Biometric must be set.
type Evidence struct {
	Password  string
	Biometric []byte
}

var ErrBadEvidence = errors.New("exactly one of password or biometric evidence required")

// Enforcer upgrades intent sessions whose second factor passes.
type Enforcer struct {
	profiles  ProfileSource
	matcher   Matcher
	audit     AuditLog
	authority *session.Authority
	now       func() time.Time
}

func NewEnforcer(profiles ProfileSource, matcher Matcher, audit AuditLog, authority *session.Authority) *Enforcer {
	return &Enforcer{
		profiles:  profiles,
		matcher:   matcher,
		audit:     audit,
		authority: authority,
		now:       time.Now,
	}
}

// Upgrade checks the presented evidence against the identity inside the
// intent claims and, on success, issues the verified token for exactly that
// identity. The identity upgraded is taken from the claims alone, so a token
// for one account can never mint a session for another. Exactly one audit
// record is written per attempt, pass or fail.
func (e *Enforcer) Upgrade(intent *session.IntentClaims, ev Evidence) (string, float64, error) {
	if intent == nil {
		return "", 0, session.ErrInvalid
	}
	hasPassword := ev.Password != ""
	hasBiometric := len(ev.Biometric) > 0
	if hasPassword == hasBiometric {
		return "", 0, ErrBadEvidence
	}

	if hasPassword {
		return e.upgradePassword(intent, ev.Password)
	}
	return e.upgradeBiometric(intent, ev.Biometric)
}

func (e *Enforcer) upgradePassword(intent *session.IntentClaims, password string) (string, float64, error) {
	ok, err := e.profiles.CheckPassword(intent.CompanyID, intent.UserID, password)
	if err != nil {
		return "", 0, errors.WrapPrefix(err, "credential store failure", 0)
	}

	if auditErr := e.record(intent, nil, ok, MethodPassword); auditErr != nil {
		return "", 0, auditErr
	}
	if !ok {
		return "", 0, &MismatchError{Score: 0, Threshold: 0}
	}

	token, _, err := e.issue(intent, 0)
	return token, 0, err
}

func (e *Enforcer) upgradeBiometric(intent *session.IntentClaims, sample []byte) (string, float64, error) {
	stored, err := e.profiles.BiometricProfile(intent.CompanyID, intent.UserID)
	if err != nil {
		return "", 0, err
	}

	score, err := e.matcher.Compare(stored, sample)
	if err != nil {
		return "", 0, errors.WrapPrefix(err, "biometric comparison failure", 0)
	}

	threshold, err := e.profiles.Threshold(intent.CompanyID)
	if err != nil {
		return "", 0, errors.WrapPrefix(err, "tenant settings failure", 0)
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	// boundary is inclusive on the accept side
	pass := score >= threshold

	if auditErr := e.record(intent, &score, pass, MethodBiometric); auditErr != nil {
		return "", 0, auditErr
	}
	if !pass {
		return "", score, &MismatchError{Score: score, Threshold: threshold}
	}

	token, _, err := e.issue(intent, score)
	return token, score, err
}

func (e *Enforcer) issue(intent *session.IntentClaims, score float64) (string, session.VerifiedClaims, error) {
	return e.authority.IssueVerified(session.VerifiedClaims{
		CompanyID: intent.CompanyID,
		UserID:    intent.UserID,
		Role:      intent.Role,
		Name:      intent.Name,
		Score:     score,
	})
}

func (e *Enforcer) record(intent *session.IntentClaims, score *float64, pass bool, method Method) error {
	outcome := OutcomeFail
	if pass {
		outcome = OutcomePass
	}
	err := e.audit.Append(&AuditRecord{
		Timestamp: e.now(),
		CompanyID: intent.CompanyID,
		UserID:    intent.UserID,
		Score:     score,
		Outcome:   outcome,
		Method:    method,
	})
	if err != nil {
		return errors.WrapPrefix(err, "failed to write audit record", 0)
	}
	return nil
}

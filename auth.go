package zkauth

import (
	"context"
	"strings"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"github.com/biolock/zkauth/big"
	"github.com/biolock/zkauth/challenge"
	"github.com/biolock/zkauth/magiclink"
	"github.com/biolock/zkauth/ratelimit"
	"github.com/biolock/zkauth/secondfactor"
	"github.com/biolock/zkauth/session"
	"github.com/biolock/zkauth/zkproof"
)

// Authenticator ties the protocol pieces together: the nonce ledger, the
// proof engine, the session authority and the second-factor enforcer. All
// methods are safe for concurrent use; the only shared mutable state lives
// behind the ledger, limiter and store interfaces.
type Authenticator struct {
	group     *zkproof.Group
	ledger    *challenge.Ledger
	sessions  *session.Authority
	users     UserStore
	companies CompanyStore
	enforcer  *secondfactor.Enforcer
	limiter   *ratelimit.Limiter
	links     *magiclink.Registry
}

// NewAuthenticator wires an Authenticator. group, ledger, sessions, users and
// companies are required; matcher may be nil if only the password second
// factor is used, limiter may be nil to disable rate limiting (single-node
// testing only), links may be nil to disable magic-link login.
func NewAuthenticator(
	group *zkproof.Group,
	ledger *challenge.Ledger,
	sessions *session.Authority,
	users UserStore,
	companies CompanyStore,
	matcher secondfactor.Matcher,
	audit secondfactor.AuditLog,
	limiter *ratelimit.Limiter,
	links *magiclink.Registry,
) (*Authenticator, error) {
	if group == nil || ledger == nil || sessions == nil || users == nil || companies == nil {
		return nil, errors.New("authenticator: missing required collaborator")
	}
	if audit == nil {
		audit = secondfactor.NewMemAuditLog()
	}
	a := &Authenticator{
		group:     group,
		ledger:    ledger,
		sessions:  sessions,
		users:     users,
		companies: companies,
		limiter:   limiter,
		links:     links,
	}
	a.enforcer = secondfactor.NewEnforcer(&profileSource{users: users, companies: companies}, matcher, audit, sessions)
	return a, nil
}

// Group returns the proof engine's group, for clients generating proofs
// in-process.
func (a *Authenticator) Group() *zkproof.Group {
	return a.group
}

// Sessions returns the session authority, for protected-resource checks.
func (a *Authenticator) Sessions() *session.Authority {
	return a.sessions
}

// IssueChallenge creates a fresh single-use nonce for one proof attempt.
func (a *Authenticator) IssueChallenge(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return a.ledger.Issue()
}

// SubmitProof consumes the nonce and verifies the proof against it. The
// nonce is burnt before verification runs, exactly once, so neither a replay
// of a valid proof nor a retry of an invalid one can succeed. Returns nil on
// acceptance; ErrReplayDetected, ErrUnknownChallenge, ErrChallengeExpired or
// ErrProofInvalid otherwise.
func (a *Authenticator) SubmitProof(ctx context.Context, commitment string, proof *zkproof.Proof, nonceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if commitment == "" || nonceID == "" || proof == nil || proof.T == nil || proof.Zv == nil || proof.Zr == nil {
		return ErrValidation
	}
	c, err := big.ParseHex(commitment)
	if err != nil {
		return ErrValidation
	}

	if _, err := a.ledger.Consume(nonceID, commitment); err != nil {
		return err
	}

	if !a.group.VerifyProof(c, proof, nonceID) {
		Logger.WithFields(logrus.Fields{"challenge": nonceID}).Warn("proof verification failed")
		return ErrProofInvalid
	}
	Logger.WithFields(logrus.Fields{"challenge": nonceID}).Debug("proof verified")
	return nil
}

// PrimaryLogin checks the primary credential and, on success, issues the
// intent token for the second-factor step. Three credential states are
// supported: a salted hash, a legacy plaintext phrase (upgraded to a hash on
// successful login), and a fresh account with no secret yet, which enrols
// the presented secret if the caller also knows the account's display name.
func (a *Authenticator) PrimaryLogin(ctx context.Context, companyID, userID, secret, name string) (string, session.IntentClaims, error) {
	var none session.IntentClaims
	if err := ctx.Err(); err != nil {
		return "", none, err
	}
	if companyID == "" || userID == "" || secret == "" {
		return "", none, ErrValidation
	}
	if err := a.allow("login/" + companyID + "/" + userID); err != nil {
		return "", none, err
	}

	u, err := a.users.Get(companyID, userID)
	if errors.Is(err, ErrUserNotFound) {
		return "", none, ErrInvalidCredentials
	}
	if err != nil {
		return "", none, errors.WrapPrefix(err, "user store failure", 0)
	}

	valid := false
	switch {
	case u.PhraseHash != "":
		valid = phraseMatches(secret, u)
	case u.Phrase != "":
		if u.Phrase == secret {
			valid = true
			if err := a.enrolSecret(u, secret); err != nil {
				return "", none, err
			}
		}
	default:
		// first login: enrol if the display name matches the record
		if name != "" && strings.EqualFold(name, u.DisplayName) {
			valid = true
			if err := a.enrolSecret(u, secret); err != nil {
				return "", none, err
			}
		}
	}
	if !valid {
		return "", none, ErrInvalidCredentials
	}

	role := u.Role
	if role == "" {
		role = "user"
	}
	displayName := u.DisplayName
	if displayName == "" {
		displayName = userID
	}
	return a.sessions.IssueIntent(session.IntentClaims{
		CompanyID: companyID,
		UserID:    userID,
		Role:      role,
		Name:      displayName,
	})
}

// IssueMagicLink creates a single-use login link token for the given account.
// The account may not exist yet; the link then acts as an invitation carrying
// the display name. Authorization of the requester is the caller's concern.
func (a *Authenticator) IssueMagicLink(ctx context.Context, companyID, userID, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if companyID == "" || userID == "" {
		return "", ErrValidation
	}
	if a.links == nil {
		return "", errors.New("magic links are not enabled")
	}
	return a.links.Issue(companyID, userID, name)
}

// MagicLinkLogin redeems a single-use login link for an intent token. The
// link is consumed before anything else happens, so it can mint at most one
// intent token no matter how often it is replayed. Unknown, redeemed and
// expired links all fail with the uniform ErrInvalidCredentials.
func (a *Authenticator) MagicLinkLogin(ctx context.Context, token string) (string, session.IntentClaims, error) {
	var none session.IntentClaims
	if err := ctx.Err(); err != nil {
		return "", none, err
	}
	if token == "" {
		return "", none, ErrValidation
	}
	if a.links == nil {
		return "", none, ErrInvalidCredentials
	}

	link, err := a.links.Consume(token)
	switch {
	case errors.Is(err, magiclink.ErrNotFound),
		errors.Is(err, magiclink.ErrAlreadyUsed),
		errors.Is(err, magiclink.ErrExpired):
		return "", none, ErrInvalidCredentials
	case err != nil:
		return "", none, errors.WrapPrefix(err, "link store failure", 0)
	}

	// preserve the role of an existing account; a link for an account that
	// does not exist yet logs in as a plain user
	role := "user"
	name := link.Name
	u, err := a.users.Get(link.CompanyID, link.UserID)
	switch {
	case err == nil:
		if u.Role != "" {
			role = u.Role
		}
		if name == "" {
			name = u.DisplayName
		}
	case errors.Is(err, ErrUserNotFound):
	default:
		return "", none, errors.WrapPrefix(err, "user store failure", 0)
	}
	if name == "" {
		name = link.UserID
	}

	return a.sessions.IssueIntent(session.IntentClaims{
		CompanyID: link.CompanyID,
		UserID:    link.UserID,
		Role:      role,
		Name:      name,
	})
}

// SecondFactor verifies the intent token and upgrades it to a verified token
// if the presented evidence passes. On a biometric mismatch the returned
// error is a *secondfactor.MismatchError carrying score and threshold.
func (a *Authenticator) SecondFactor(ctx context.Context, intentToken string, ev secondfactor.Evidence) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if intentToken == "" {
		return "", 0, ErrValidation
	}

	claims, err := a.sessions.VerifyIntent(intentToken)
	if err != nil {
		return "", 0, err
	}
	if err := a.allow("upgrade/" + claims.CompanyID + "/" + claims.UserID); err != nil {
		return "", 0, err
	}
	return a.enforcer.Upgrade(claims, ev)
}

// PurgeExpired sweeps stale nonces and magic links; meant to be called
// periodically.
func (a *Authenticator) PurgeExpired() (int, error) {
	n, err := a.ledger.PurgeExpired()
	if err != nil {
		return n, err
	}
	if a.links != nil {
		m, err := a.links.PurgeExpired()
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (a *Authenticator) allow(key string) error {
	if a.limiter == nil {
		return nil
	}
	ok, err := a.limiter.Allow(key)
	if err != nil {
		return errors.WrapPrefix(err, "rate limit store failure", 0)
	}
	if !ok {
		Logger.WithFields(logrus.Fields{"key": key}).Warn("rate limit exceeded")
		return ErrRateLimited
	}
	return nil
}

// profileSource adapts the user and company stores to the second-factor
// enforcer's view. The biometric template is handed to the enforcer only;
// nothing above this adapter ever sees it.
type profileSource struct {
	users     UserStore
	companies CompanyStore
}

func (p *profileSource) BiometricProfile(companyID, userID string) ([]byte, error) {
	u, err := p.users.Get(companyID, userID)
	if err != nil {
		return nil, err
	}
	if len(u.BiometricProfile) == 0 {
		return nil, secondfactor.ErrNoProfile
	}
	return u.BiometricProfile, nil
}

func (p *profileSource) CheckPassword(companyID, userID, password string) (bool, error) {
	u, err := p.users.Get(companyID, userID)
	if err != nil {
		return false, err
	}
	return phraseMatches(password, u), nil
}

func (p *profileSource) Threshold(companyID string) (float64, error) {
	c, err := p.companies.Get(companyID)
	if errors.Is(err, ErrCompanyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.Threshold, nil
}

func (a *Authenticator) enrolSecret(u *User, secret string) error {
	salt, err := NewSalt()
	if err != nil {
		return err
	}
	u.Salt = salt
	u.PhraseHash = HashPhrase(secret, salt)
	u.Phrase = ""
	if err := a.users.Update(u); err != nil {
		return errors.WrapPrefix(err, "failed to upgrade credential", 0)
	}
	return nil
}

package session

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func testAuthority(t *testing.T) *Authority {
	a, err := NewAuthority(testKey)
	require.NoError(t, err)
	return a
}

func TestWeakKeyRejected(t *testing.T) {
	_, err := NewAuthority(nil)
	assert.Equal(t, ErrWeakKey, err)
	_, err = NewAuthority([]byte("short"))
	assert.Equal(t, ErrWeakKey, err)
}

func TestIntentRoundtrip(t *testing.T) {
	a := testAuthority(t)

	token, issued, err := a.IssueIntent(IntentClaims{
		CompanyID: "acme", UserID: "alice", Role: "user", Name: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, IntentLifetime, issued.Expiry.Sub(issued.IssuedAt))

	claims, err := a.VerifyIntent(token)
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.CompanyID)
	assert.Equal(t, "alice", claims.UserID)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "Alice", claims.Name)
}

func TestVerifiedRoundtrip(t *testing.T) {
	a := testAuthority(t)

	token, issued, err := a.IssueVerified(VerifiedClaims{
		CompanyID: "acme", UserID: "alice", Role: "user", Score: 87.5,
	})
	require.NoError(t, err)
	assert.Equal(t, VerifiedLifetime, issued.Expiry.Sub(issued.IssuedAt))

	claims, err := a.VerifyVerified(token)
	require.NoError(t, err)
	assert.Equal(t, 87.5, claims.Score)
}

func TestTierConfusionRejected(t *testing.T) {
	a := testAuthority(t)

	intent, _, err := a.IssueIntent(IntentClaims{CompanyID: "acme", UserID: "alice"})
	require.NoError(t, err)
	verified, _, err := a.IssueVerified(VerifiedClaims{CompanyID: "acme", UserID: "alice"})
	require.NoError(t, err)

	// an intent token must never pass a verified check, and vice versa
	_, err = a.VerifyVerified(intent)
	assert.Equal(t, ErrInvalid, err)
	_, err = a.VerifyIntent(verified)
	assert.Equal(t, ErrInvalid, err)
}

func TestExpiredRejected(t *testing.T) {
	a := testAuthority(t)
	token, _, err := a.IssueVerified(VerifiedClaims{CompanyID: "acme", UserID: "alice"})
	require.NoError(t, err)

	for _, skew := range []time.Duration{VerifiedLifetime, VerifiedLifetime + time.Hour, 100 * 24 * time.Hour} {
		offset := skew
		a.now = func() time.Time { return time.Now().Add(offset) }
		_, err = a.VerifyVerified(token)
		assert.Equal(t, ErrInvalid, err, "skew %v", skew)
	}
}

func TestTamperedRejected(t *testing.T) {
	a := testAuthority(t)
	token, _, err := a.IssueVerified(VerifiedClaims{CompanyID: "acme", UserID: "alice"})
	require.NoError(t, err)

	parts := strings.SplitN(token, ".", 2)
	require.Len(t, parts, 2)

	// flip one character of the payload
	mutated := []byte(parts[0])
	if mutated[0] == 'A' {
		mutated[0] = 'B'
	} else {
		mutated[0] = 'A'
	}
	_, err = a.VerifyVerified(string(mutated) + "." + parts[1])
	assert.Equal(t, ErrInvalid, err)

	// garbage forms
	for _, bad := range []string{"", ".", "a.b.c", parts[0], parts[0] + ".", "!!!." + parts[1]} {
		_, err = a.VerifyVerified(bad)
		assert.Equal(t, ErrInvalid, err, "token %q", bad)
	}

	// valid form, wrong key
	other, err := NewAuthority([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)
	_, err = other.VerifyVerified(token)
	assert.Equal(t, ErrInvalid, err)
}

func TestCookie(t *testing.T) {
	c := Cookie("tok", true)
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, int((24 * time.Hour).Seconds()), c.MaxAge)

	cleared := ClearCookie(false)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.False(t, cleared.Secure)
}

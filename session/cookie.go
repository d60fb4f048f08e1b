package session

import "net/http"

// CookieName is the cookie carrying the verified session token.
const CookieName = "auth_session"

// Cookie builds the session cookie for a verified token. HTTP-only and
// SameSite=Lax always; Secure per deployment configuration.
func Cookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(VerifiedLifetime.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the session cookie. Logout is advisory: the token
// itself stays valid until its expiry, enforcement is purely by timestamp.
func ClearCookie(secure bool) *http.Cookie {
	c := Cookie("", secure)
	c.MaxAge = -1
	return c
}

package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-errors/errors"

	"github.com/biolock/zkauth"
	"github.com/biolock/zkauth/secondfactor"
	"github.com/biolock/zkauth/session"
	"github.com/biolock/zkauth/zkproof"
)

type server struct {
	auth       *zkauth.Authenticator
	secure     bool
	linkDomain string
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/challenge", s.handleChallenge)
	mux.HandleFunc("/auth/verify", s.handleVerify)
	mux.HandleFunc("/auth/login", s.handleLogin)
	mux.HandleFunc("/auth/magic-link", s.handleMagicLinkCreate)
	mux.HandleFunc("/auth/magic-link/verify", s.handleMagicLinkVerify)
	mux.HandleFunc("/auth/verify-biometrics", s.handleSecondFactor)
	mux.HandleFunc("/auth/logout", s.handleLogout)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	nonce, err := s.auth.IssueChallenge(r.Context())
	if err != nil {
		zkauth.Logger.WithError(err).Error("challenge issuance failed")
		writeError(w, http.StatusInternalServerError, "failed to generate challenge")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"nonce": nonce})
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Commitment string         `json:"commitment"`
		Proof      *zkproof.Proof `json:"proof"`
		Nonce      string         `json:"nonce"`
	}
	// the protocol payload is a fixed structure; unknown fields are rejected
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "missing protocol parameters")
		return
	}

	err := s.auth.SubmitProof(r.Context(), req.Commitment, req.Proof, req.Nonce)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, zkauth.ErrValidation):
		writeError(w, http.StatusBadRequest, "missing protocol parameters")
	case errors.Is(err, zkauth.ErrReplayDetected):
		writeError(w, http.StatusForbidden, "replay detected: this challenge is expired")
	case errors.Is(err, zkauth.ErrUnknownChallenge), errors.Is(err, zkauth.ErrChallengeExpired):
		writeError(w, http.StatusForbidden, "invalid security challenge")
	case errors.Is(err, zkauth.ErrProofInvalid):
		writeError(w, http.StatusUnauthorized, "proof verification failed")
	default:
		zkauth.Logger.WithError(err).Error("proof submission failed")
		writeError(w, http.StatusInternalServerError, "internal verification error")
	}
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		CompanyID string `json:"companyId"`
		UserID    string `json:"userId"`
		Password  string `json:"password"`
		Name      string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	token, claims, err := s.auth.PrimaryLogin(r.Context(), req.CompanyID, req.UserID, req.Password, req.Name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"intentToken": token,
			"user": map[string]string{
				"companyId": claims.CompanyID,
				"userId":    claims.UserID,
				"role":      claims.Role,
				"name":      claims.Name,
			},
		})
	case errors.Is(err, zkauth.ErrValidation):
		writeError(w, http.StatusBadRequest, "missing credentials")
	case errors.Is(err, zkauth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, zkauth.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many attempts")
	default:
		zkauth.Logger.WithError(err).Error("login failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *server) handleMagicLinkCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	// issuing links is for authenticated operators only
	if _, err := s.auth.Sessions().VerifyVerified(s.sessionToken(r)); err != nil {
		writeError(w, http.StatusUnauthorized, "verified session required")
		return
	}
	var req struct {
		CompanyID string `json:"companyId"`
		UserID    string `json:"userId"`
		Name      string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "missing parameters")
		return
	}

	token, err := s.auth.IssueMagicLink(r.Context(), req.CompanyID, req.UserID, req.Name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{
			"token":     token,
			"magicLink": s.linkDomain + "/login?token=" + token,
		})
	case errors.Is(err, zkauth.ErrValidation):
		writeError(w, http.StatusBadRequest, "missing parameters")
	default:
		zkauth.Logger.WithError(err).Error("magic link issuance failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *server) handleMagicLinkVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	token, claims, err := s.auth.MagicLinkLogin(r.Context(), req.Token)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"intentToken": token,
			"user": map[string]string{
				"companyId": claims.CompanyID,
				"userId":    claims.UserID,
				"name":      claims.Name,
			},
		})
	case errors.Is(err, zkauth.ErrValidation):
		writeError(w, http.StatusBadRequest, "missing token")
	case errors.Is(err, zkauth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid or expired magic link")
	default:
		zkauth.Logger.WithError(err).Error("magic link verification failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// sessionToken extracts the verified-session token from the session cookie or
// a bearer Authorization header.
func (s *server) sessionToken(r *http.Request) string {
	if c, err := r.Cookie(session.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (s *server) handleSecondFactor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		IntentToken   string `json:"intentToken"`
		BiometricData []byte `json:"biometricData"`
		Password      string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "missing verification data")
		return
	}

	token, score, err := s.auth.SecondFactor(r.Context(), req.IntentToken, secondfactor.Evidence{
		Password:  req.Password,
		Biometric: req.BiometricData,
	})

	var mismatch *secondfactor.MismatchError
	switch {
	case err == nil:
		http.SetCookie(w, session.Cookie(token, s.secure))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"score":   score,
			"token":   token,
		})
	case errors.As(err, &mismatch):
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"error":     "second factor mismatch",
			"score":     mismatch.Score,
			"threshold": mismatch.Threshold,
		})
	case errors.Is(err, zkauth.ErrValidation), errors.Is(err, secondfactor.ErrBadEvidence):
		writeError(w, http.StatusBadRequest, "missing verification data")
	case errors.Is(err, zkauth.ErrSessionInvalid):
		writeError(w, http.StatusUnauthorized, "invalid or expired session intent")
	case errors.Is(err, secondfactor.ErrNoProfile):
		writeError(w, http.StatusForbidden, "no biometric profile enrolled")
	case errors.Is(err, zkauth.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many attempts")
	default:
		zkauth.Logger.WithError(err).Error("second factor failed")
		writeError(w, http.StatusInternalServerError, "internal security error")
	}
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	http.SetCookie(w, session.ClearCookie(s.secure))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

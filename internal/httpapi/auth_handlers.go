package httpapi

import (
	"net/http"
	"strings"
	"time"

	"kortio.se/internal/audit"
	"kortio.se/internal/auth"
	"kortio.se/internal/bank"
)

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if len(a.authSecret) == 0 {
		writeError(w, r, http.StatusNotImplemented, "token auth is not configured")
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := a.store.Users().GetByEmail(r.Context(), email)
	if err != nil {
		// Same answer for unknown email and bad password.
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(a.authSecret, user.ID, user.CompanyID, a.tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	now := time.Now().UTC()
	if _, err := a.store.Users().Update(r.Context(), user.ID, bank.UserPatch{LastLogin: &now}); err != nil {
		// Login still succeeds if the timestamp write fails.
		_ = audit.LogEvent(r.Context(), "auth.last_login.stamp_failed", map[string]any{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}

	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"user_id":    user.ID,
		"company_id": user.CompanyID,
		"expires_at": now.Add(a.tokenTTL).Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: now.Add(a.tokenTTL),
	})
}

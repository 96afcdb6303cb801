package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/membergate/membergate/internal/server/middleware"
	"github.com/membergate/membergate/internal/service"
)

// AuthHandler serves the login, logout, and session-check endpoints for
// both members and admins.
type AuthHandler struct {
	auth *service.AuthService
	// secureCookies sets the Secure flag on credential cookies; enabled in
	// production.
	secureCookies bool
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookies: secureCookies}
}

type passphraseRequest struct {
	Passphrase string `json:"passphrase"`
}

// PassphraseLogin verifies the submitted passphrase against the current
// month's record and, on success, sets the member credential cookie with
// the end-of-month expiry.
// POST /api/auth/passphrase
func (h *AuthHandler) PassphraseLogin(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Passphrase == "" {
		writeError(w, http.StatusBadRequest, "Passphrase is required")
		return
	}

	token, validUntil, err := h.auth.LoginWithPassphrase(r.Context(), req.Passphrase)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPassphrase) {
			// One fixed message for every rejection; never reveal whether a
			// phrase exists for the month.
			writeError(w, http.StatusUnauthorized, "Invalid passphrase")
			return
		}
		writeAppError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.MemberCookie,
		Value:    token,
		Path:     "/",
		Expires:  validUntil,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"valid_until": validUntil.Format(time.RFC3339),
	})
}

// Check reports whether the caller's member token is currently valid.
// GET /api/auth/check
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(middleware.MemberCookie)
	if err != nil || c.Value == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"authenticated": false})
		return
	}

	validUntil, err := h.auth.CheckMemberToken(c.Value)
	if err != nil {
		reason := "Invalid token"
		if errors.Is(err, service.ErrTokenExpired) {
			reason = "Token expired"
		}
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"authenticated": false,
			"reason":        reason,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"validUntil":    validUntil.Format(time.RFC3339),
	})
}

// Logout clears the member credential cookie.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearCookie(w, middleware.MemberCookie)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminLogin authenticates an admin and sets the admin credential cookie
// with a 24-hour lifetime. Unknown email and wrong password produce the
// identical response.
// POST /api/auth/admin
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	admin, token, err := h.auth.LoginAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		writeAppError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(service.AdminTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"admin": map[string]string{
			"id":    admin.ID,
			"email": admin.Email,
			"name":  admin.Name,
		},
	})
}

// AdminLogout clears the admin credential cookie. The token itself stays
// cryptographically valid until natural expiry.
// DELETE /api/auth/admin
func (h *AuthHandler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearCookie(w, middleware.AdminCookie)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

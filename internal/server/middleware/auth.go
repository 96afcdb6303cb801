package middleware

import (
	"context"
	"net/http"

	"github.com/membergate/membergate/internal/service"
)

type contextKeyAuth string

// AuthPrincipalKey is the context key for the authenticated principal.
const AuthPrincipalKey contextKeyAuth = "auth_principal"

// Cookie names for the two credential slots.
const (
	MemberCookie = "auth-token"
	AdminCookie  = "admin-token"
)

// Principal represents the authenticated identity making the request.
type Principal struct {
	IsAdmin bool
	AdminID string
	Email   string
}

// MemberAPI returns a middleware that requires a valid member token in the
// auth-token cookie. The embedded validUntil is re-checked against the
// current wall-clock time even though the codec carries its own expiry.
// Failures clear the cookie and respond 401; nothing reaches the handler.
func MemberAPI(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(MemberCookie)
			if err != nil || c.Value == "" {
				writeAuthError(w, "Authentication required")
				return
			}
			if _, err := authSvc.CheckMemberToken(c.Value); err != nil {
				ClearCookie(w, MemberCookie)
				writeAuthError(w, "Invalid or expired session")
				return
			}
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, &Principal{})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminAPI returns a middleware that requires a valid admin token with the
// isAdmin claim in the admin-token cookie. Failures clear the cookie and
// respond 401.
func AdminAPI(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(AdminCookie)
			if err != nil || c.Value == "" {
				writeAuthError(w, "Admin authentication required")
				return
			}
			claims, err := authSvc.VerifyAdminToken(c.Value)
			if err != nil {
				ClearCookie(w, AdminCookie)
				writeAuthError(w, "Invalid or expired admin session")
				return
			}
			principal := &Principal{
				IsAdmin: true,
				AdminID: claims.AdminID,
				Email:   claims.Email,
			}
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MemberPage is the page-route variant of MemberAPI: instead of a JSON 401
// it redirects to the login page. A missing cookie redirects untouched; an
// invalid or expired one is cleared first.
func MemberPage(authSvc *service.AuthService, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(MemberCookie)
			if err != nil || c.Value == "" {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			if _, err := authSvc.CheckMemberToken(c.Value); err != nil {
				ClearCookie(w, MemberCookie)
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminPage is the page-route variant of AdminAPI, redirecting to the
// admin login page on failure.
func AdminPage(authSvc *service.AuthService, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(AdminCookie)
			if err != nil || c.Value == "" {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			if _, err := authSvc.VerifyAdminToken(c.Value); err != nil {
				ClearCookie(w, AdminCookie)
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present.
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

// ClearCookie expires the named credential cookie.
func ClearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"code":401,"message":"` + message + `"}}`))
}

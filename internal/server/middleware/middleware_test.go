package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/membergate/membergate/internal/model"
	"github.com/membergate/membergate/internal/ratelimit"
	"github.com/membergate/membergate/internal/service"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// ---------------------------------------------------------------------------
// Request ID
// ---------------------------------------------------------------------------

func TestRequestIDGenerated(t *testing.T) {
	var captured string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if captured == "" {
		t.Fatal("no request ID in context")
	}
	if got := rr.Header().Get("X-Request-ID"); got != captured {
		t.Errorf("header = %q, context = %q; want equal", got, captured)
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	h := RequestID(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("X-Request-ID = %q, want client-supplied-id", got)
	}
}

func TestRequestIDOversizedHeaderReplaced(t *testing.T) {
	h := RequestID(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", maxRequestIDLen+1))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	got := rr.Header().Get("X-Request-ID")
	if got == "" || strings.HasPrefix(got, "xxx") {
		t.Errorf("X-Request-ID = %q, want a freshly minted ID", got)
	}
}

// ---------------------------------------------------------------------------
// Rate limit
// ---------------------------------------------------------------------------

func TestRateLimitThrottles(t *testing.T) {
	limiter := ratelimit.New()
	policy := ratelimit.Policy{Window: 15 * time.Minute, MaxRequests: 2}
	h := RateLimit(limiter, policy)(okHandler())

	doReq := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := doReq(); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rr.Code)
		}
	}

	rr := doReq()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Errorf("X-RateLimit-Limit = %q, want 2", got)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
}

func TestRateLimitSeparatesClients(t *testing.T) {
	limiter := ratelimit.New()
	policy := ratelimit.Policy{Window: 15 * time.Minute, MaxRequests: 1}
	h := RateLimit(limiter, policy)(okHandler())

	doReq := func(ip string) int {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := doReq("203.0.113.1"); code != http.StatusOK {
		t.Fatalf("first client: %d", code)
	}
	if code := doReq("203.0.113.1"); code != http.StatusTooManyRequests {
		t.Fatalf("first client second request: %d, want 429", code)
	}
	if code := doReq("203.0.113.2"); code != http.StatusOK {
		t.Fatalf("second client: %d, want 200", code)
	}
}

// ---------------------------------------------------------------------------
// Auth gates
// ---------------------------------------------------------------------------

func newGateAuth() *service.AuthService {
	return service.NewAuthService(nil, "middleware-test-secret")
}

func TestMemberAPIMissingCookie(t *testing.T) {
	h := MemberAPI(newGateAuth())(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/contents", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

func TestMemberAPIValidToken(t *testing.T) {
	auth := newGateAuth()
	token, err := auth.IssueMemberToken(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueMemberToken: %v", err)
	}

	reached := false
	h := MemberAPI(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest("GET", "/api/contents", nil)
	req.AddCookie(&http.Cookie{Name: MemberCookie, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if !reached {
		t.Fatal("handler not reached with a valid token")
	}
}

func TestMemberAPIExpiredTokenClearsCookie(t *testing.T) {
	auth := newGateAuth()
	token, err := auth.IssueMemberToken(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("IssueMemberToken: %v", err)
	}

	h := MemberAPI(auth)(okHandler())
	req := httptest.NewRequest("GET", "/api/contents", nil)
	req.AddCookie(&http.Cookie{Name: MemberCookie, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	assertCookieCleared(t, rr, MemberCookie)
}

func TestAdminAPIRejectsMemberToken(t *testing.T) {
	auth := newGateAuth()
	token, err := auth.IssueMemberToken(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueMemberToken: %v", err)
	}

	h := AdminAPI(auth)(okHandler())
	req := httptest.NewRequest("GET", "/api/admin/admins", nil)
	req.AddCookie(&http.Cookie{Name: AdminCookie, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestAdminAPISetsPrincipal(t *testing.T) {
	auth := newGateAuth()
	token, err := auth.IssueAdminToken(&model.Admin{ID: "a1", Email: "admin@example.com"})
	if err != nil {
		t.Fatalf("IssueAdminToken: %v", err)
	}

	var p *Principal
	h := AdminAPI(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p = GetPrincipal(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/admin/admins", nil)
	req.AddCookie(&http.Cookie{Name: AdminCookie, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if p == nil {
		t.Fatal("no principal in context")
	}
	if !p.IsAdmin || p.AdminID != "a1" || p.Email != "admin@example.com" {
		t.Errorf("principal = %+v", p)
	}
}

func TestMemberPageRedirects(t *testing.T) {
	h := MemberPage(newGateAuth(), "/login")(okHandler())

	// Missing cookie: redirect, nothing to clear.
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/dashboard", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/login" {
		t.Errorf("Location = %q, want /login", got)
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == MemberCookie {
			t.Error("missing cookie case must not set a clearing cookie")
		}
	}
}

func TestMemberPageInvalidTokenClearsAndRedirects(t *testing.T) {
	h := MemberPage(newGateAuth(), "/login")(okHandler())

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: MemberCookie, Value: "garbage"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
	assertCookieCleared(t, rr, MemberCookie)
}

func TestAdminPageRedirectsToAdminLogin(t *testing.T) {
	h := AdminPage(newGateAuth(), "/admin/login")(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/admin", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/admin/login" {
		t.Errorf("Location = %q, want /admin/login", got)
	}
}

func assertCookieCleared(t *testing.T, rr *httptest.ResponseRecorder, name string) {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			if c.Value != "" || c.MaxAge >= 0 {
				t.Errorf("cookie %s not cleared: value=%q maxage=%d", name, c.Value, c.MaxAge)
			}
			return
		}
	}
	t.Errorf("no clearing Set-Cookie for %s", name)
}

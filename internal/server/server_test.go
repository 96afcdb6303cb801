package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/membergate/membergate/internal/cache"
	"github.com/membergate/membergate/internal/model"
	"github.com/membergate/membergate/internal/ratelimit"
	"github.com/membergate/membergate/internal/service"
	"github.com/membergate/membergate/internal/store"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const (
	testJWTSecret = "test-secret-for-integration-tests"
	testPassword  = "supersecretpassword"
)

// testEnv holds all the shared state for integration tests.
type testEnv struct {
	server  *Server
	store   *store.Store
	authSvc *service.AuthService
	limiter *ratelimit.Limiter
	now     time.Time
}

// newTestEnv creates a fresh test environment: an in-memory store, a
// clock pinned to mid-June 2025, and a fully wired Server.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	env := &testEnv{
		store: st,
		now:   time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
	}

	authSvc := service.NewAuthService(st, testJWTSecret)
	authSvc.Clock = func() time.Time { return env.now }
	env.authSvc = authSvc
	env.limiter = ratelimit.New()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := DefaultConfig()
	cfg.SecureCookies = false
	env.server = New(cfg, st, authSvc, env.limiter, cache.NewMemory(), logger)

	return env
}

// seedPassphrase registers the June 2025 passphrase.
func (e *testEnv) seedPassphrase(t *testing.T, phrase string) {
	t.Helper()
	pp := &model.PassPhrase{Phrase: phrase, Month: 6, Year: 2025}
	if err := e.store.CreatePassPhrase(context.Background(), pp); err != nil {
		t.Fatalf("seedPassphrase: %v", err)
	}
}

// seedAdmin creates a default admin account and returns it.
func (e *testEnv) seedAdmin(t *testing.T) *model.Admin {
	t.Helper()
	hash, err := service.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin := &model.Admin{Email: "admin@example.com", PasswordHash: hash, Name: "Test Admin"}
	if err := e.store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	return admin
}

// memberCookie logs in with the passphrase and returns the credential cookie.
func (e *testEnv) memberCookie(t *testing.T, phrase string) *http.Cookie {
	t.Helper()
	rr := e.do(t, "POST", "/api/auth/passphrase",
		jsonBody(t, map[string]string{"passphrase": phrase}), nil)
	assertStatus(t, rr, http.StatusOK)
	return findCookie(t, rr, "auth-token")
}

// adminCookie logs in as the seeded admin and returns the credential cookie.
func (e *testEnv) adminCookie(t *testing.T) *http.Cookie {
	t.Helper()
	rr := e.do(t, "POST", "/api/auth/admin",
		jsonBody(t, map[string]string{"email": "admin@example.com", "password": testPassword}), nil)
	assertStatus(t, rr, http.StatusOK)
	return findCookie(t, rr, "admin-token")
}

// do executes an HTTP request against the test server. The X-Forwarded-For
// header keeps rate-limit buckets distinct per test.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.10")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("jsonBody: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

func findCookie(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", name)
	return nil
}

// ---------------------------------------------------------------------------
// Health checks
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/healthz", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want ok", resp["status"])
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/readyz", nil, nil)
	assertStatus(t, rr, http.StatusOK)
}

// ---------------------------------------------------------------------------
// Member auth flow
// ---------------------------------------------------------------------------

func TestPassphraseLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedPassphrase(t, "summer-training-2025")

	rr := env.do(t, "POST", "/api/auth/passphrase",
		jsonBody(t, map[string]string{"passphrase": "summer-training-2025"}), nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Success    bool   `json:"success"`
		ValidUntil string `json:"valid_until"`
	}
	decodeJSON(t, rr, &resp)
	if !resp.Success {
		t.Error("success = false")
	}
	if resp.ValidUntil != "2025-06-30T23:59:59Z" {
		t.Errorf("valid_until = %q, want end of June", resp.ValidUntil)
	}

	cookie := findCookie(t, rr, "auth-token")
	if !cookie.HttpOnly {
		t.Error("credential cookie must be HttpOnly")
	}
	if want := time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC); !cookie.Expires.Equal(want) {
		t.Errorf("cookie expires = %v, want %v", cookie.Expires, want)
	}

	// The cookie opens the member API.
	rr = env.do(t, "GET", "/api/contents", nil, cookie)
	assertStatus(t, rr, http.StatusOK)

	// And the session check confirms it.
	rr = env.do(t, "GET", "/api/auth/check", nil, cookie)
	assertStatus(t, rr, http.StatusOK)
	var check map[string]interface{}
	decodeJSON(t, rr, &check)
	if check["authenticated"] != true {
		t.Errorf("authenticated = %v, want true", check["authenticated"])
	}
}

func TestPassphraseLoginRejections(t *testing.T) {
	env := newTestEnv(t)
	env.seedPassphrase(t, "summer-training-2025")

	// Wrong phrase.
	rr := env.do(t, "POST", "/api/auth/passphrase",
		jsonBody(t, map[string]string{"passphrase": "wrong"}), nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error.Message != "Invalid passphrase" {
		t.Errorf("message = %q, want the fixed rejection text", resp.Error.Message)
	}

	// Missing phrase.
	rr = env.do(t, "POST", "/api/auth/passphrase",
		jsonBody(t, map[string]string{}), nil)
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestMemberTokenExpiresWithMonth(t *testing.T) {
	env := newTestEnv(t)
	env.seedPassphrase(t, "summer-training-2025")
	cookie := env.memberCookie(t, "summer-training-2025")

	// Cross into July: the embedded validUntil cuts access off even though
	// the token's registered expiry is 30 days out.
	env.now = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	rr := env.do(t, "GET", "/api/contents", nil, cookie)
	assertStatus(t, rr, http.StatusUnauthorized)

	rr = env.do(t, "GET", "/api/auth/check", nil, cookie)
	assertStatus(t, rr, http.StatusUnauthorized)
	var check map[string]interface{}
	decodeJSON(t, rr, &check)
	if check["reason"] != "Token expired" {
		t.Errorf("reason = %v, want Token expired", check["reason"])
	}
}

func TestMemberAPIRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/contents", "/api/categories"} {
		rr := env.do(t, "GET", path, nil, nil)
		assertStatus(t, rr, http.StatusUnauthorized)
	}
}

func TestMemberLogout(t *testing.T) {
	env := newTestEnv(t)
	env.seedPassphrase(t, "summer-training-2025")
	cookie := env.memberCookie(t, "summer-training-2025")

	rr := env.do(t, "POST", "/api/auth/logout", nil, cookie)
	assertStatus(t, rr, http.StatusOK)

	cleared := findCookie(t, rr, "auth-token")
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Errorf("logout did not clear the cookie: value=%q maxage=%d", cleared.Value, cleared.MaxAge)
	}
}

// ---------------------------------------------------------------------------
// Admin auth flow
// ---------------------------------------------------------------------------

func TestAdminLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	rr := env.do(t, "POST", "/api/auth/admin",
		jsonBody(t, map[string]string{"email": "admin@example.com", "password": testPassword}), nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Success bool `json:"success"`
		Admin   struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"admin"`
	}
	decodeJSON(t, rr, &resp)
	if !resp.Success || resp.Admin.Email != "admin@example.com" {
		t.Errorf("resp = %+v", resp)
	}

	cookie := findCookie(t, rr, "admin-token")
	if cookie.MaxAge != 24*60*60 {
		t.Errorf("cookie MaxAge = %d, want 86400", cookie.MaxAge)
	}

	rr = env.do(t, "GET", "/api/admin/admins", nil, cookie)
	assertStatus(t, rr, http.StatusOK)
}

func TestAdminLoginFailuresLookIdentical(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	unknown := env.do(t, "POST", "/api/auth/admin",
		jsonBody(t, map[string]string{"email": "nobody@example.com", "password": testPassword}), nil)
	wrongPw := env.do(t, "POST", "/api/auth/admin",
		jsonBody(t, map[string]string{"email": "admin@example.com", "password": "bad"}), nil)

	assertStatus(t, unknown, http.StatusUnauthorized)
	assertStatus(t, wrongPw, http.StatusUnauthorized)
	if unknown.Body.String() != wrongPw.Body.String() {
		t.Errorf("responses differ: %q vs %q", unknown.Body.String(), wrongPw.Body.String())
	}
}

func TestMemberTokenCannotOpenAdminAPI(t *testing.T) {
	env := newTestEnv(t)
	env.seedPassphrase(t, "summer-training-2025")
	member := env.memberCookie(t, "summer-training-2025")

	// Present the member token in the admin cookie slot.
	forged := &http.Cookie{Name: "admin-token", Value: member.Value}
	rr := env.do(t, "GET", "/api/admin/admins", nil, forged)
	assertStatus(t, rr, http.StatusUnauthorized)
}

// ---------------------------------------------------------------------------
// Admin CRUD invariants
// ---------------------------------------------------------------------------

func TestAdminCannotDeleteLastAdmin(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedAdmin(t)
	cookie := env.adminCookie(t)

	rr := env.do(t, "DELETE", "/api/admin/admins/"+admin.ID, nil, cookie)
	assertStatus(t, rr, http.StatusBadRequest)

	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error.Message != "Cannot delete the last admin" {
		t.Errorf("message = %q", resp.Error.Message)
	}

	// With a second admin present the delete goes through.
	rr = env.do(t, "POST", "/api/admin/admins",
		jsonBody(t, map[string]string{"email": "second@example.com", "password": "password123", "name": "Second"}), cookie)
	assertStatus(t, rr, http.StatusOK)

	rr = env.do(t, "DELETE", "/api/admin/admins/"+admin.ID, nil, cookie)
	assertStatus(t, rr, http.StatusOK)
}

func TestDuplicatePassphraseMonthRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	cookie := env.adminCookie(t)

	body := map[string]interface{}{"phrase": "june", "month": 6, "year": 2025}
	rr := env.do(t, "POST", "/api/admin/passphrase", jsonBody(t, body), cookie)
	assertStatus(t, rr, http.StatusOK)

	body["phrase"] = "another-june"
	rr = env.do(t, "POST", "/api/admin/passphrase", jsonBody(t, body), cookie)
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestCategoryWithContentsCannotBeDeleted(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	cookie := env.adminCookie(t)

	rr := env.do(t, "POST", "/api/admin/categories",
		jsonBody(t, map[string]interface{}{"name": "Training", "slug": "training", "order": 1}), cookie)
	assertStatus(t, rr, http.StatusOK)
	var catResp struct {
		Category model.Category `json:"category"`
	}
	decodeJSON(t, rr, &catResp)

	rr = env.do(t, "POST", "/api/admin/contents",
		jsonBody(t, map[string]interface{}{
			"title":           "First article",
			"type":            "ARTICLE",
			"article_content": "body",
			"category_id":     catResp.Category.ID,
		}), cookie)
	assertStatus(t, rr, http.StatusOK)

	rr = env.do(t, "DELETE", "/api/admin/categories/"+catResp.Category.ID, nil, cookie)
	assertStatus(t, rr, http.StatusBadRequest)

	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error.Message != "Cannot delete a category that has contents" {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestCreateContentValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	cookie := env.adminCookie(t)

	rr := env.do(t, "POST", "/api/admin/categories",
		jsonBody(t, map[string]interface{}{"name": "Videos", "slug": "videos", "order": 1}), cookie)
	assertStatus(t, rr, http.StatusOK)
	var catResp struct {
		Category model.Category `json:"category"`
	}
	decodeJSON(t, rr, &catResp)

	// A video without a recognizable YouTube URL is rejected.
	rr = env.do(t, "POST", "/api/admin/contents",
		jsonBody(t, map[string]interface{}{
			"title":       "Bad video",
			"type":        "VIDEO",
			"youtube_url": "https://vimeo.com/12345",
			"category_id": catResp.Category.ID,
		}), cookie)
	assertStatus(t, rr, http.StatusBadRequest)

	// A valid one passes.
	rr = env.do(t, "POST", "/api/admin/contents",
		jsonBody(t, map[string]interface{}{
			"title":       "Good video",
			"type":        "VIDEO",
			"youtube_url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			"category_id": catResp.Category.ID,
		}), cookie)
	assertStatus(t, rr, http.StatusOK)

	// An article without body text is rejected.
	rr = env.do(t, "POST", "/api/admin/contents",
		jsonBody(t, map[string]interface{}{
			"title":       "Empty article",
			"type":        "ARTICLE",
			"category_id": catResp.Category.ID,
		}), cookie)
	assertStatus(t, rr, http.StatusBadRequest)
}

// ---------------------------------------------------------------------------
// Member feed
// ---------------------------------------------------------------------------

func TestMemberFeedAndViewCount(t *testing.T) {
	env := newTestEnv(t)
	env.seedPassphrase(t, "summer-training-2025")
	env.seedAdmin(t)
	admin := env.adminCookie(t)
	member := env.memberCookie(t, "summer-training-2025")

	rr := env.do(t, "POST", "/api/admin/categories",
		jsonBody(t, map[string]interface{}{"name": "Training", "slug": "training", "order": 1}), admin)
	assertStatus(t, rr, http.StatusOK)
	var catResp struct {
		Category model.Category `json:"category"`
	}
	decodeJSON(t, rr, &catResp)

	published := env.now.Add(-time.Hour)
	rr = env.do(t, "POST", "/api/admin/contents",
		jsonBody(t, map[string]interface{}{
			"title":           "Published article",
			"type":            "ARTICLE",
			"article_content": "body",
			"category_id":     catResp.Category.ID,
			"published_at":    published.Format(time.RFC3339),
		}), admin)
	assertStatus(t, rr, http.StatusOK)
	var contentResp struct {
		Content model.Content `json:"content"`
	}
	decodeJSON(t, rr, &contentResp)

	// A draft stays invisible to members.
	rr = env.do(t, "POST", "/api/admin/contents",
		jsonBody(t, map[string]interface{}{
			"title":           "Draft article",
			"type":            "ARTICLE",
			"article_content": "body",
			"category_id":     catResp.Category.ID,
		}), admin)
	assertStatus(t, rr, http.StatusOK)

	rr = env.do(t, "GET", "/api/contents", nil, member)
	assertStatus(t, rr, http.StatusOK)
	var feed struct {
		Contents []model.Content `json:"contents"`
	}
	decodeJSON(t, rr, &feed)
	if len(feed.Contents) != 1 || feed.Contents[0].Title != "Published article" {
		t.Fatalf("feed = %d items, want only the published one", len(feed.Contents))
	}

	// Detail view.
	rr = env.do(t, "GET", "/api/contents/"+contentResp.Content.ID, nil, member)
	assertStatus(t, rr, http.StatusOK)

	// View counter.
	rr = env.do(t, "POST", "/api/contents/"+contentResp.Content.ID+"/view", nil, member)
	assertStatus(t, rr, http.StatusOK)
	var viewResp struct {
		ViewCount int64 `json:"view_count"`
	}
	decodeJSON(t, rr, &viewResp)
	if viewResp.ViewCount != 1 {
		t.Errorf("view_count = %d, want 1", viewResp.ViewCount)
	}
}

// ---------------------------------------------------------------------------
// Rate limiting
// ---------------------------------------------------------------------------

func TestAuthEndpointsAreRateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.seedPassphrase(t, "summer-training-2025")

	body := func() *bytes.Buffer {
		return jsonBody(t, map[string]string{"passphrase": "wrong"})
	}

	// The auth policy admits five requests per window.
	for i := 0; i < 5; i++ {
		rr := env.do(t, "POST", "/api/auth/passphrase", body(), nil)
		assertStatus(t, rr, http.StatusUnauthorized)
	}

	rr := env.do(t, "POST", "/api/auth/passphrase", body(), nil)
	assertStatus(t, rr, http.StatusTooManyRequests)
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestAPITrafficDoesNotConsumeAuthBudget(t *testing.T) {
	env := newTestEnv(t)
	env.seedPassphrase(t, "summer-training-2025")

	// Drive the client well past the auth policy's budget on a general
	// API route. These requests bounce off the member gate with 401s but
	// still count against the api policy.
	for i := 0; i < 6; i++ {
		rr := env.do(t, "GET", "/api/contents", nil, nil)
		assertStatus(t, rr, http.StatusUnauthorized)
	}

	// The client's first login attempt must still go through.
	rr := env.do(t, "POST", "/api/auth/passphrase",
		jsonBody(t, map[string]string{"passphrase": "summer-training-2025"}), nil)
	assertStatus(t, rr, http.StatusOK)
}

// ---------------------------------------------------------------------------
// CORS
// ---------------------------------------------------------------------------

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("OPTIONS", "/api/contents", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rr := httptest.NewRecorder()
	env.server.ServeHTTP(rr, req)

	// Preflight short-circuits before the auth gate.
	if rr.Code != http.StatusOK && rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 200 or 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Page routes
// ---------------------------------------------------------------------------

func TestPageRedirects(t *testing.T) {
	env := newTestEnv(t)

	// Anonymous visits to gated pages redirect to the right login.
	rr := env.do(t, "GET", "/dashboard", nil, nil)
	assertStatus(t, rr, http.StatusFound)
	if got := rr.Header().Get("Location"); got != "/login" {
		t.Errorf("Location = %q, want /login", got)
	}

	rr = env.do(t, "GET", "/admin", nil, nil)
	assertStatus(t, rr, http.StatusFound)
	if got := rr.Header().Get("Location"); got != "/admin/login" {
		t.Errorf("Location = %q, want /admin/login", got)
	}

	// The login pages themselves are public.
	for _, path := range []string{"/", "/login", "/admin/login"} {
		rr := env.do(t, "GET", path, nil, nil)
		assertStatus(t, rr, http.StatusOK)
	}
}

func TestGatedPagesOpenWithValidCookies(t *testing.T) {
	env := newTestEnv(t)
	env.seedPassphrase(t, "summer-training-2025")
	env.seedAdmin(t)

	member := env.memberCookie(t, "summer-training-2025")
	rr := env.do(t, "GET", "/dashboard", nil, member)
	assertStatus(t, rr, http.StatusOK)

	admin := env.adminCookie(t)
	rr = env.do(t, "GET", "/admin", nil, admin)
	assertStatus(t, rr, http.StatusOK)
}

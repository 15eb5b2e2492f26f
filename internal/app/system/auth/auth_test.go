package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func withTestUser(r *http.Request, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:    "507f1f77bcf86cd799439011",
		Name:  "Test User",
		Login: "octocat",
		Role:  role,
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	_, err := auth.NewSessionManager("", "s", "", time.Hour, false, zap.NewNop())
	if err != auth.ErrEmptySessionKey {
		t.Fatalf("expected ErrEmptySessionKey, got %v", err)
	}
}

func TestRequireSignedIn_NoUser_RedirectsToLogin(t *testing.T) {
	sm := newTestSessionManager(t)

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/login") {
		t.Errorf("expected redirect to /login, got %q", loc)
	}
}

func TestRequireSignedIn_NoUser_API_Returns401JSON(t *testing.T) {
	sm := newTestSessionManager(t)

	req := httptest.NewRequest("GET", "/api/organizations", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Errorf("expected JSON failure envelope, got %q", rec.Body.String())
	}
}

func TestRequireSignedIn_NoUser_HTMX_ReturnsHXRedirect(t *testing.T) {
	sm := newTestSessionManager(t)

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if hx := rec.Header().Get("HX-Redirect"); !strings.HasPrefix(hx, "/login") {
		t.Errorf("expected HX-Redirect to /login, got %q", hx)
	}
}

func TestRequireRole(t *testing.T) {
	sm := newTestSessionManager(t)

	tests := []struct {
		name     string
		allowed  []string
		role     string
		accept   string
		wantCode int
		wantLoc  string
	}{
		{"admin allowed", []string{"admin"}, "admin", "application/json", http.StatusOK, ""},
		{"case insensitive", []string{"ADMIN"}, "admin", "application/json", http.StatusOK, ""},
		{"one of many", []string{"admin", "manager"}, "manager", "application/json", http.StatusOK, ""},
		{"viewer forbidden api", []string{"admin", "manager"}, "viewer", "application/json", http.StatusForbidden, ""},
		{"viewer forbidden html", []string{"admin"}, "viewer", "text/html", http.StatusSeeOther, "/forbidden"},
		{"anonymous html", []string{"admin"}, "", "text/html", http.StatusSeeOther, "/login?return=%2Fadmin"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			req.Header.Set("Accept", tc.accept)
			if tc.role != "" {
				req = withTestUser(req, tc.role)
			}
			rec := httptest.NewRecorder()
			sm.RequireRole(tc.allowed...)(okHandler()).ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Errorf("status: got %d, want %d", rec.Code, tc.wantCode)
			}
			if tc.wantLoc != "" && rec.Header().Get("Location") != tc.wantLoc {
				t.Errorf("location: got %q, want %q", rec.Header().Get("Location"), tc.wantLoc)
			}
		})
	}
}

func TestCurrentUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if _, ok := auth.CurrentUser(req); ok {
		t.Fatal("expected no user on a bare request")
	}

	req = withTestUser(req, "manager")
	u, ok := auth.CurrentUser(req)
	if !ok {
		t.Fatal("expected user")
	}
	if u.Role != "manager" || u.Login != "octocat" {
		t.Errorf("unexpected user %+v", u)
	}
	if u.IsAdmin() {
		t.Error("manager should not be admin")
	}
}

// roundTrip replays the cookies set by rec onto a new request.
func roundTrip(rec *httptest.ResponseRecorder, target string) *http.Request {
	req := httptest.NewRequest("GET", target, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSignIn_LoadSessionUser_RoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/github/callback", nil)
	err := sm.SignIn(rec, req, auth.SessionUser{ID: "abc", Name: "Mona", Login: "mona", Role: "admin"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	var got *auth.SessionUser
	var selected string
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
		selected = auth.SelectedOrganization(r.Context())
	}))

	// Select an organization, then load the session again.
	rec2 := httptest.NewRecorder()
	if err := sm.SelectOrganization(rec2, roundTrip(rec, "/auth/select-organization"), "org-1"); err != nil {
		t.Fatalf("SelectOrganization: %v", err)
	}
	h.ServeHTTP(httptest.NewRecorder(), roundTrip(rec2, "/dashboard"))

	if got == nil || got.ID != "abc" || got.Role != "admin" || got.Login != "mona" {
		t.Fatalf("unexpected session user %+v", got)
	}
	if selected != "org-1" {
		t.Errorf("selected organization: got %q, want org-1", selected)
	}
}

func TestSignOut_ClearsUser(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	_ = sm.SignIn(rec, httptest.NewRequest("GET", "/", nil), auth.SessionUser{ID: "abc", Role: "viewer"})

	rec2 := httptest.NewRecorder()
	if err := sm.SignOut(rec2, roundTrip(rec, "/logout")); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	var found bool
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), roundTrip(rec2, "/dashboard"))
	if found {
		t.Error("expected no user after sign out")
	}
}

type stubFetcher struct {
	users map[string]*auth.SessionUser
	err   error
	calls int
}

func (f *stubFetcher) FetchUser(_ context.Context, id string) (*auth.SessionUser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

func TestLoadSessionUser_FetcherRefreshesRole(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	_ = sm.SignIn(rec, httptest.NewRequest("GET", "/", nil), auth.SessionUser{ID: "abc", Name: "Mona", Role: "admin"})

	fetcher := &stubFetcher{users: map[string]*auth.SessionUser{
		"abc": {ID: "abc", Name: "Mona", Role: "viewer"},
	}}
	sm.SetUserFetcher(fetcher)

	h := sm.LoadSessionUser(sm.RequireRole("admin", "manager")(okHandler()))
	out := httptest.NewRecorder()
	h.ServeHTTP(out, roundTrip(rec, "/api/billing/sync/x"))

	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", fetcher.calls)
	}
	if out.Code != http.StatusForbidden {
		t.Errorf("demoted user: got %d, want %d", out.Code, http.StatusForbidden)
	}
}

func TestLoadSessionUser_DeletedUserIsSignedOut(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	_ = sm.SignIn(rec, httptest.NewRequest("GET", "/", nil), auth.SessionUser{ID: "gone", Role: "admin"})
	sm.SetUserFetcher(&stubFetcher{users: map[string]*auth.SessionUser{}})

	var found bool
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	}))
	out := httptest.NewRecorder()
	h.ServeHTTP(out, roundTrip(rec, "/dashboard"))

	if found {
		t.Fatal("deleted user should not be in context")
	}
	expired := false
	for _, c := range out.Result().Cookies() {
		if c.Name == "test-session" && c.MaxAge < 0 {
			expired = true
		}
	}
	if !expired {
		t.Error("expected the session cookie to be expired")
	}
}

func TestLoadSessionUser_FetchErrorIsAnonymous(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	_ = sm.SignIn(rec, httptest.NewRequest("GET", "/", nil), auth.SessionUser{ID: "abc", Role: "admin"})
	sm.SetUserFetcher(&stubFetcher{err: context.DeadlineExceeded})

	h := sm.LoadSessionUser(sm.RequireSignedIn(okHandler()))
	out := httptest.NewRecorder()
	h.ServeHTTP(out, roundTrip(rec, "/api/organizations"))
	if out.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", out.Code)
	}
}

func TestFlashes(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	sm.AddFlash(rec, httptest.NewRequest("GET", "/", nil), "Organization not found")

	msgs := sm.Flashes(httptest.NewRecorder(), roundTrip(rec, "/dashboard"))
	if len(msgs) != 1 || msgs[0] != "Organization not found" {
		t.Errorf("unexpected flashes %v", msgs)
	}
}

func TestSelectedOrganization_Context(t *testing.T) {
	ctx := auth.WithSelectedOrganization(context.Background(), "org-9")
	if got := auth.SelectedOrganization(ctx); got != "org-9" {
		t.Errorf("got %q", got)
	}
	if got := auth.SelectedOrganization(context.Background()); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

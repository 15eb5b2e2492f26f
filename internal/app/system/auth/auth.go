package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey      = "is_authenticated"
	userIDKey      = "user_id"
	userNameKey    = "user_name"
	userLoginKey   = "user_login"
	userEmailKey   = "user_email"
	userRoleKey    = "user_role"
	userAvatarKey  = "user_avatar"
	selectedOrgKey = "selected_org"
	oauthStateKey  = "oauth_state"
)

// ErrEmptySessionKey is returned when no signing key is configured.
var ErrEmptySessionKey = errors.New("session key is empty; provide 32+ random chars")

/*─────────────────────────────────────────────────────────────────────────────*
| Current user                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is what we keep in the session and inject into r.Context().
type SessionUser struct {
	ID        string
	Name      string
	Login     string // GitHub username or email for local accounts
	Email     string
	Role      string
	AvatarURL string
}

// IsAdmin reports whether the user may perform every mutation.
func (u *SessionUser) IsAdmin() bool { return u != nil && u.Role == "admin" }

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	selectedOrgCtx ctxKey = "selectedOrganization"
)

// CurrentUser returns the user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects u into the request context. Handler tests use it to
// bypass the cookie round-trip.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// SelectedOrganization returns the organization id (hex) the user picked for
// this session, or "" when none was chosen.
func SelectedOrganization(ctx context.Context) string {
	id, _ := ctx.Value(selectedOrgCtx).(string)
	return id
}

// WithSelectedOrganization carries the selected organization id on ctx.
func WithSelectedOrganization(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, selectedOrgCtx, orgID)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// UserFetcher reloads the signed-in user from storage. A nil user with a nil
// error means the account no longer exists.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (*SessionUser, error)
}

// SessionManager owns the cookie store and the request-identity middleware.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	logger  *zap.Logger
	fetcher UserFetcher
}

// SetUserFetcher makes LoadSessionUser refresh the user (and role) from
// storage on every request instead of trusting the cookie copy.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) {
	sm.fetcher = f
}

// NewSessionManager builds a cookie-backed session store.
//
// In production (secure=true) cookies are Secure + SameSite=Lax so the GitHub
// OAuth redirect still carries them. In local dev over http://localhost use
// secure=false so the browser accepts them.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, ErrEmptySessionKey
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "copilotbilling-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, logger: logger}, nil
}

func (sm *SessionManager) session(r *http.Request) *sessions.Session {
	// A decode failure (rotated key, tampering) yields a fresh session.
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sm.logger.Debug("session decode failed; starting fresh", zap.Error(err))
	}
	return sess
}

// SignIn stores u in the session cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	sess := sm.session(r)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values[userNameKey] = u.Name
	sess.Values[userLoginKey] = u.Login
	sess.Values[userEmailKey] = u.Email
	sess.Values[userRoleKey] = u.Role
	sess.Values[userAvatarKey] = u.AvatarURL
	return sess.Save(r, w)
}

// SignOut clears the session and expires the cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess := sm.session(r)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// SelectOrganization remembers the organization the user is working in.
func (sm *SessionManager) SelectOrganization(w http.ResponseWriter, r *http.Request, orgID string) error {
	sess := sm.session(r)
	sess.Values[selectedOrgKey] = orgID
	return sess.Save(r, w)
}

// AddFlash queues a one-shot message for the next rendered page.
func (sm *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, msg string) {
	sess := sm.session(r)
	sess.AddFlash(msg)
	if err := sess.Save(r, w); err != nil {
		sm.logger.Warn("save flash failed", zap.Error(err))
	}
}

// Flashes pops any queued messages.
func (sm *SessionManager) Flashes(w http.ResponseWriter, r *http.Request) []string {
	sess := sm.session(r)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		sm.logger.Warn("clear flashes failed", zap.Error(err))
	}
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// SetOAuthState stores the anti-forgery state for an OAuth round-trip.
func (sm *SessionManager) SetOAuthState(w http.ResponseWriter, r *http.Request, state string) error {
	sess := sm.session(r)
	sess.Values[oauthStateKey] = state
	return sess.Save(r, w)
}

// ConsumeOAuthState returns and clears the stored OAuth state.
func (sm *SessionManager) ConsumeOAuthState(w http.ResponseWriter, r *http.Request) string {
	sess := sm.session(r)
	state := getString(sess, oauthStateKey)
	delete(sess.Values, oauthStateKey)
	if err := sess.Save(r, w); err != nil {
		sm.logger.Warn("clear oauth state failed", zap.Error(err))
	}
	return state
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadSessionUser injects the signed-in user and the selected organization
// into the request context. With a UserFetcher set, the stored user replaces
// the cookie copy and a deleted user's session is cleared.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sm.session(r)

		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			u := &SessionUser{
				ID:        getString(sess, userIDKey),
				Name:      getString(sess, userNameKey),
				Login:     getString(sess, userLoginKey),
				Email:     getString(sess, userEmailKey),
				Role:      getString(sess, userRoleKey),
				AvatarURL: getString(sess, userAvatarKey),
			}
			if sm.fetcher != nil {
				fresh, err := sm.fetcher.FetchUser(r.Context(), u.ID)
				if err != nil {
					// Fail closed: the request proceeds anonymously.
					sm.logger.Warn("reload session user failed", zap.String("user_id", u.ID), zap.Error(err))
					next.ServeHTTP(w, r)
					return
				}
				if fresh == nil {
					sm.logger.Info("session user no longer exists; signing out", zap.String("user_id", u.ID))
					if err := sm.SignOut(w, r); err != nil {
						sm.logger.Warn("clear stale session failed", zap.Error(err))
					}
					next.ServeHTTP(w, r)
					return
				}
				u = fresh
			}
			r = WithTestUser(r, u)
			if org := getString(sess, selectedOrgKey); org != "" {
				r = r.WithContext(WithSelectedOrganization(r.Context(), org))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		unauthenticated(w, r)
	})
}

// RequireRole ensures the signed-in user holds one of the allowed roles.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				unauthenticated(w, r)
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// helpers

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	ret := url.QueryEscape(r.URL.RequestURI())
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login?return="+ret)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
		return
	}
	writeJSONError(w, http.StatusUnauthorized, "Authentication required")
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/forbidden")
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/forbidden", http.StatusSeeOther)
		return
	}
	writeJSONError(w, http.StatusForbidden, "Insufficient permissions")
}

// writeJSONError writes the API failure envelope. msg must not need escaping.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"message":"` + msg + `"}`))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

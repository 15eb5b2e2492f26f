// internal/app/features/authgithub/handler.go
package authgithub

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	userstore "github.com/dalemusser/copilotbilling/internal/app/store/users"
	"github.com/dalemusser/copilotbilling/internal/app/system/auditlog"
	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/app/system/githubapi"
	"github.com/dalemusser/copilotbilling/internal/app/system/normalize"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// Scopes requested from GitHub: the primary email and organization membership.
var Scopes = []string{"user:email", "read:org"}

// Handler handles GitHub OAuth authentication.
type Handler struct {
	Users      *userstore.Store
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	GitHub     githubapi.Factory

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://billing.example.com/auth/github/callback"
	Endpoint     oauth2.Endpoint

	// AdminLogins are GitHub usernames granted the admin role on every sign-in.
	AdminLogins []string
}

// NewHandler creates a new GitHub OAuth handler.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	gh githubapi.Factory,
	clientID, clientSecret, callbackURL string,
	adminLogins []string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:        userstore.New(db),
		Log:          logger,
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		GitHub:       gh,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  callbackURL,
		Endpoint:     github.Endpoint,
		AdminLogins:  adminLogins,
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes:       Scopes,
		Endpoint:     h.Endpoint,
	}
}

// IsConfigured returns true if GitHub OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/github                                                             |
| Starts the OAuth flow by redirecting to GitHub's consent screen.             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("GitHub OAuth not configured")
		http.Redirect(w, r, "/login?error=github_not_configured", http.StatusSeeOther)
		return
	}

	state := generateState()
	if state == "" {
		h.Log.Error("failed to generate OAuth state")
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	// The return path travels with the state so the callback can honor it.
	returnURL := urlutil.SafeReturn(query.Get(r, "return"), "", "/dashboard")
	if err := h.SessionMgr.SetOAuthState(w, r, state+"|"+returnURL); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	url := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating GitHub OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/github/callback                                                    |
| Exchanges the code, loads the GitHub profile, upserts the user and signs in. |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("GitHub OAuth error",
			zap.String("error", errParam),
			zap.String("description", query.Get(r, "error_description")))
		h.fail(w, r, "denied: "+errParam, "github_denied")
		return
	}

	stored := h.SessionMgr.ConsumeOAuthState(w, r)
	expected, returnURL, _ := strings.Cut(stored, "|")
	state := query.Get(r, "state")
	if state == "" || expected == "" || state != expected {
		h.Log.Warn("invalid OAuth state")
		h.fail(w, r, "invalid state", "invalid_state")
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		h.fail(w, r, "missing code", "invalid_code")
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	token, err := h.oauth2Config().Exchange(ctxTimeout, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.fail(w, r, "token exchange failed", "token_exchange")
		return
	}

	account, err := h.GitHub.ForToken(token.AccessToken).GetAuthenticatedUser(ctxTimeout)
	if err != nil {
		h.Log.Error("failed to fetch GitHub user", zap.Error(err))
		h.fail(w, r, "user info failed", "user_info")
		return
	}

	profile := userstore.GitHubProfile{
		GitHubID:    strconv.FormatInt(account.ID, 10),
		Username:    account.Login,
		Name:        account.Name,
		Email:       account.Email,
		AvatarURL:   account.AvatarURL,
		AccessToken: token.AccessToken,
	}
	if h.isAdminLogin(account.Login) {
		profile.Role = models.RoleAdmin
	}

	u, err := h.Users.UpsertGitHub(ctxTimeout, profile)
	if err != nil {
		h.Log.Error("failed to upsert GitHub user", zap.Error(err), zap.String("github_login", account.Login))
		h.fail(w, r, "user upsert failed", "internal")
		return
	}

	err = h.SessionMgr.SignIn(w, r, auth.SessionUser{
		ID:        u.ID.Hex(),
		Name:      u.Name,
		Login:     u.Username,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.Avatar,
	})
	if err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		h.fail(w, r, "session save failed", "session")
		return
	}

	h.AuditLog.LoginSuccess(ctx, r, u.ID, "github", u.Username)
	h.Log.Info("user logged in via GitHub OAuth",
		zap.String("user_id", u.ID.Hex()),
		zap.String("github_login", u.Username))

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/dashboard"), http.StatusSeeOther)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, reason, code string) {
	h.AuditLog.LoginFailedOAuth(r.Context(), r, reason)
	http.Redirect(w, r, "/login?error="+code, http.StatusSeeOther)
}

func (h *Handler) isAdminLogin(login string) bool {
	for _, a := range h.AdminLogins {
		if normalize.Login(a) == normalize.Login(login) {
			return true
		}
	}
	return false
}

// generateState returns a random URL-safe state, or "" if the system
// random source fails.
func generateState() string {
	b := securecookie.GenerateRandomKey(32)
	if b == nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

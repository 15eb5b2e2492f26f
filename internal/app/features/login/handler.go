// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/dalemusser/copilotbilling/internal/app/store/users"
	"github.com/dalemusser/copilotbilling/internal/app/system/auditlog"
	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/app/system/inputval"
	"github.com/dalemusser/copilotbilling/internal/app/system/normalize"
	"github.com/dalemusser/copilotbilling/internal/app/system/ratelimit"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"github.com/dalemusser/copilotbilling/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	Users         *userstore.Store
	Log           *zap.Logger
	SessionMgr    *auth.SessionManager
	AuditLog      *auditlog.Logger
	Limiter       *ratelimit.LoginLimiter // nil disables throttling
	GitHubEnabled bool                    // True if GitHub OAuth is configured
}

// loginInput is the password sign-in form after normalization.
type loginInput struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Error         string
	Email         string
	ReturnURL     string
	GitHubEnabled bool
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, audit *auditlog.Logger, limiter *ratelimit.LoginLimiter, githubEnabled bool, logger *zap.Logger) *Handler {
	return &Handler{
		Users:         userstore.New(db),
		Log:           logger,
		SessionMgr:    sessionMgr,
		AuditLog:      audit,
		Limiter:       limiter,
		GitHubEnabled: githubEnabled,
	}
}

// oauthErrors maps the codes the GitHub callback appends to /login.
var oauthErrors = map[string]string{
	"github_not_configured": "GitHub sign-in is not configured.",
	"github_denied":         "GitHub sign-in was cancelled.",
	"invalid_state":         "Your sign-in request expired. Please try again.",
	"invalid_code":          "GitHub did not return an authorization code.",
	"token_exchange":        "Could not complete GitHub sign-in.",
	"user_info":             "Could not read your GitHub profile.",
	"session":               "Could not start your session.",
	"internal":              "A server error occurred.",
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, r, oauthErrors[query.Get(r, "error")], "", query.Get(r, "return"))
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "Invalid form data.", "", "")
		return
	}

	in := loginInput{
		Email:    normalize.Email(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	email := in.Email
	ret := r.FormValue("return")
	if in.Email == "" || in.Password == "" {
		h.render(w, r, "Please enter your email and password.", email, ret)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		h.render(w, r, res.First(), email, ret)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if h.Limiter != nil {
		if ok, limitType, msg := h.Limiter.Check(r, email); !ok {
			h.AuditLog.LoginFailedRateLimit(ctx, r, email, limitType)
			h.Log.Warn("login rate limited",
				zap.String("limit_type", limitType),
				zap.String("ip", ratelimit.ClientIP(r)))
			w.WriteHeader(http.StatusTooManyRequests)
			h.render(w, r, msg, email, ret)
			return
		}
	}

	u, err := h.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		h.AuditLog.LoginFailedUserNotFound(ctx, r, email)
		h.render(w, r, "Invalid email or password.", email, ret)
		return
	case err != nil:
		h.Log.Error("login: find user", zap.Error(err))
		h.render(w, r, "A server error occurred.", email, ret)
		return
	}

	// GitHub-only accounts have no password.
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, email)
		h.render(w, r, "Invalid email or password.", email, ret)
		return
	}

	if err := h.Users.TouchLogin(ctx, u.ID); err != nil {
		h.Log.Warn("login: record last login", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	}

	err = h.SessionMgr.SignIn(w, r, auth.SessionUser{
		ID:        u.ID.Hex(),
		Name:      u.Name,
		Login:     u.Email,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.Avatar,
	})
	if err != nil {
		h.Log.Error("login: save session", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		h.render(w, r, "Could not start your session.", email, ret)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, "password", u.Email)
	h.Log.Info("user logged in", zap.String("user_id", u.ID.Hex()))

	http.Redirect(w, r, urlutil.SafeReturn(ret, "", "/dashboard"), http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, msg, email, ret string) {
	templates.Render(w, r, "login", loginFormData{
		BaseVM:        viewdata.NewBaseVM(w, r, h.SessionMgr, "Sign in", "/"),
		Error:         msg,
		Email:         email,
		ReturnURL:     ret,
		GitHubEnabled: h.GitHubEnabled,
	})
}

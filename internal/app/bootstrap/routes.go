// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditlogfeature "github.com/dalemusser/copilotbilling/internal/app/features/auditlog"
	authgithubfeature "github.com/dalemusser/copilotbilling/internal/app/features/authgithub"
	billingfeature "github.com/dalemusser/copilotbilling/internal/app/features/billing"
	businessunitsfeature "github.com/dalemusser/copilotbilling/internal/app/features/businessunits"
	dashboardfeature "github.com/dalemusser/copilotbilling/internal/app/features/dashboard"
	_ "github.com/dalemusser/copilotbilling/internal/app/features/dashboard/views"
	errorsfeature "github.com/dalemusser/copilotbilling/internal/app/features/errors"
	healthfeature "github.com/dalemusser/copilotbilling/internal/app/features/health"
	loginfeature "github.com/dalemusser/copilotbilling/internal/app/features/login"
	logoutfeature "github.com/dalemusser/copilotbilling/internal/app/features/logout"
	organizationsfeature "github.com/dalemusser/copilotbilling/internal/app/features/organizations"
	_ "github.com/dalemusser/copilotbilling/internal/app/features/shared/views"
	userstore "github.com/dalemusser/copilotbilling/internal/app/store/users"
	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It boots the template engine, applies
// metrics and session middleware, and mounts the JSON API under /api plus
// the dashboard pages, sign-in flows, health and metrics endpoints.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Reload the user and role from MongoDB on each request so demotions and
	// deletions take effect without waiting for the cookie to expire.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	db := deps.MongoDatabase
	audit := newAuditLogger(appCfg, deps, logger)
	gh := newGitHubFactory(appCfg, deps)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Use(deps.Metrics.Middleware)

	// Global auth middleware: loads SessionUser and the selected organization
	// into the request context when the visitor is signed in.
	r.Use(sessionMgr.LoadSessionUser)

	// Operational endpoints
	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.SecretStatus, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", deps.Metrics.Handler())

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	// Authentication
	limiter := ratelimit.NewLoginLimiter()
	if deps.Background != nil {
		deps.Background.LoginLimiter = limiter
	}
	loginHandler := loginfeature.NewHandler(db, sessionMgr, audit, limiter, appCfg.GitHubEnabled(), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, audit, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	githubHandler := authgithubfeature.NewHandler(db, sessionMgr, audit, gh,
		appCfg.GitHubClientID, appCfg.GitHubClientSecret, appCfg.GitHubCallbackURL,
		appCfg.AdminLogins, logger)
	r.Mount("/auth/github", authgithubfeature.Routes(githubHandler))

	// Dashboard pages
	dashboardHandler := dashboardfeature.NewHandler(db, sessionMgr, gh, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))
	r.With(sessionMgr.RequireSignedIn).Post("/auth/select-organization", dashboardHandler.SelectOrganization)

	// Audit log (admin)
	r.Mount("/audit", auditlogfeature.Routes(auditlogfeature.NewHandler(db, sessionMgr, logger), sessionMgr))

	// JSON API
	r.Route("/api", func(api chi.Router) {
		orgHandler := organizationsfeature.NewHandler(db, gh, audit, logger)
		api.Mount("/organizations", organizationsfeature.Routes(orgHandler, sessionMgr))

		syncer := newSyncer(appCfg, deps, audit, logger)
		billingHandler := billingfeature.NewHandler(db, syncer, audit, deps.Metrics, logger)
		api.Mount("/billing", billingfeature.Routes(billingHandler, sessionMgr))

		unitsHandler := businessunitsfeature.NewHandler(db, audit, logger)
		api.Mount("/business-units", businessunitsfeature.Routes(unitsHandler, sessionMgr))
	})

	// Error pages
	errorsHandler := errorsfeature.NewHandler(sessionMgr)
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)
	r.NotFound(errorsHandler.NotFound)

	return r, nil
}

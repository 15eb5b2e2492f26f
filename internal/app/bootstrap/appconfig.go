// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/copilotbilling/internal/app/system/secrets"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig), with credentials then replaced
// by the managed secret store when one is configured. The struct is built
// once and passed by value to every lifecycle hook.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS, logging,
// CORS, body limits); everything specific to billing tracking lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: copilotbilling-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// GitHub OAuth and REST API
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string   // defaults to BaseURL + /auth/github/callback
	GitHubAPIURL       string   // REST base URL (GitHub Enterprise or tests)
	AdminLogins        []string // GitHub usernames granted the admin role

	// Managed secret store
	AzureKeyVaultName string // blank disables the overlay
	SecretStatus      secrets.Status

	// Billing
	SyncSchedule    string  // cron expression; blank disables scheduled syncs
	DefaultSeatCost float64 // billed for a seat whose usage is unknown

	// Audit logging
	AuditLogAuth    string        // 'all', 'db', 'log', or 'off'
	AuditLogAdmin   string        // 'all', 'db', 'log', or 'off'
	AuditLogBilling string        // 'all', 'db', 'log', or 'off'
	AuditRetention  time.Duration // 0 keeps audit events forever

	// Public base URL (OAuth redirect)
	BaseURL string // e.g., "https://billing.example.com" or "http://localhost:3000"
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c AppConfig) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

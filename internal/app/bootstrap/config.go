// internal/app/bootstrap/config.go
package bootstrap

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/copilotbilling/internal/app/system/billingsync"
	"github.com/dalemusser/copilotbilling/internal/app/system/secrets"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the billing dashboard.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: COPILOTBILLING_MONGO_URI, COPILOTBILLING_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "copilot_billing", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size (default: 5)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "copilotbilling-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime (e.g., 24h, 168h)"},

	// GitHub
	{Name: "github_client_id", Default: "", Desc: "GitHub OAuth app client ID"},
	{Name: "github_client_secret", Default: "", Desc: "GitHub OAuth app client secret"},
	{Name: "github_callback_url", Default: "", Desc: "OAuth callback URL (default: base_url + /auth/github/callback)"},
	{Name: "github_api_url", Default: "https://api.github.com", Desc: "GitHub REST API base URL"},
	{Name: "admin_logins", Default: "", Desc: "Comma-separated GitHub usernames granted the admin role"},

	// Secrets
	{Name: "azure_key_vault_name", Default: "", Desc: "Azure Key Vault holding SessionSecret, GitHubClientId, GitHubClientSecret and MongoDbUri"},

	// Billing
	{Name: "sync_schedule", Default: "", Desc: "Cron schedule for syncing every organization (blank disables)"},
	{Name: "default_seat_cost", Default: "10", Desc: "Cost billed for a seat whose usage cannot be fetched"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_billing", Default: "all", Desc: "Billing event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_retention", Default: "2160h", Desc: "How long audit events are kept (0 keeps them forever)"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL of the dashboard"},
}

// secretsTimeout bounds the startup secret overlay.
const secretsTimeout = 20 * time.Second

// LoadConfig loads WAFFLE core config and app-specific config, then
// overlays credentials from Azure Key Vault when a vault is configured.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, COPILOTBILLING_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "COPILOTBILLING", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	seatCost, err := strconv.ParseFloat(strings.TrimSpace(appValues.String("default_seat_cost")), 64)
	if err != nil {
		return nil, AppConfig{}, fmt.Errorf("default_seat_cost: %w", err)
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		GitHubClientID:     appValues.String("github_client_id"),
		GitHubClientSecret: appValues.String("github_client_secret"),
		GitHubCallbackURL:  appValues.String("github_callback_url"),
		GitHubAPIURL:       appValues.String("github_api_url"),
		AdminLogins:        splitList(appValues.String("admin_logins")),

		AzureKeyVaultName: appValues.String("azure_key_vault_name"),

		SyncSchedule:    strings.TrimSpace(appValues.String("sync_schedule")),
		DefaultSeatCost: seatCost,

		AuditLogAuth:    appValues.String("audit_log_auth"),
		AuditLogAdmin:   appValues.String("audit_log_admin"),
		AuditLogBilling: appValues.String("audit_log_billing"),
		AuditRetention:  appValues.Duration("audit_retention", 90*24*time.Hour),

		BaseURL: strings.TrimRight(appValues.String("base_url"), "/"),
	}
	if appCfg.GitHubCallbackURL == "" {
		appCfg.GitHubCallbackURL = appCfg.BaseURL + "/auth/github/callback"
	}

	ctx, cancel := context.WithTimeout(context.Background(), secretsTimeout)
	defer cancel()
	appCfg = overlaySecrets(ctx, appCfg, vaultSource(appCfg.AzureKeyVaultName, logger), logger)

	return coreCfg, appCfg, nil
}

// vaultSource returns the Key Vault for name, or nil when none is configured
// or the client cannot be built.
func vaultSource(name string, logger *zap.Logger) secrets.Source {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	kv, err := secrets.NewKeyVault(name)
	if err != nil {
		logger.Warn("key vault unavailable; using configured secrets", zap.String("vault", name), zap.Error(err))
		return nil
	}
	logger.Info("loading secrets from key vault", zap.String("url", kv.URL()))
	return kv
}

// overlaySecrets replaces credentials in cfg with those held by src.
func overlaySecrets(ctx context.Context, cfg AppConfig, src secrets.Source, logger *zap.Logger) AppConfig {
	vals, st := secrets.Overlay(ctx, src, secrets.Values{
		SessionSecret:      cfg.SessionKey,
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
		MongoURI:           cfg.MongoURI,
	}, logger)

	cfg.SessionKey = vals.SessionSecret
	cfg.GitHubClientID = vals.GitHubClientID
	cfg.GitHubClientSecret = vals.GitHubClientSecret
	cfg.MongoURI = vals.MongoURI
	cfg.SecretStatus = st
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if strings.TrimSpace(appCfg.SessionKey) == "" {
		return fmt.Errorf("session_key must be set")
	}
	if (appCfg.GitHubClientID == "") != (appCfg.GitHubClientSecret == "") {
		return fmt.Errorf("github_client_id and github_client_secret must be set together")
	}
	if appCfg.DefaultSeatCost < 0 {
		return fmt.Errorf("default_seat_cost must not be negative, got %v", appCfg.DefaultSeatCost)
	}
	if appCfg.SyncSchedule != "" {
		if _, err := cron.ParseStandard(appCfg.SyncSchedule); err != nil {
			return fmt.Errorf("invalid sync_schedule %q: %w", appCfg.SyncSchedule, err)
		}
	}
	if appCfg.DefaultSeatCost == 0 {
		logger.Warn("default_seat_cost is 0; falling back to the built-in seat cost",
			zap.Float64("seat_cost", billingsync.DefaultSeatCost))
	}
	return nil
}

// Package secrets overlays credentials from a managed secret store onto the
// values loaded from configuration.
//
// The overlay runs once at startup and returns plain values; nothing is
// cached or fetched again while the process runs.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

// Secret names in the vault.
const (
	SessionSecret      = "SessionSecret"
	GitHubClientID     = "GitHubClientId"
	GitHubClientSecret = "GitHubClientSecret"
	MongoDBURI         = "MongoDbUri"
)

// ErrEmptySecret is returned when the vault holds a secret with no value.
var ErrEmptySecret = errors.New("secret has no value")

// Source fetches one secret by name.
type Source interface {
	Get(ctx context.Context, name string) (string, error)
}

// KeyVault reads secrets from Azure Key Vault using the default Azure
// credential chain (environment, workload identity, managed identity, CLI).
type KeyVault struct {
	client *azsecrets.Client
	url    string
}

// NewKeyVault connects to https://<vaultName>.vault.azure.net.
func NewKeyVault(vaultName string) (*KeyVault, error) {
	vaultName = strings.TrimSpace(vaultName)
	if vaultName == "" {
		return nil, errors.New("key vault name is empty")
	}
	url := fmt.Sprintf("https://%s.vault.azure.net/", vaultName)

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	client, err := azsecrets.NewClient(url, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("key vault client: %w", err)
	}
	return &KeyVault{client: client, url: url}, nil
}

// URL returns the vault endpoint.
func (k *KeyVault) URL() string { return k.url }

// Get returns the latest version of the named secret.
func (k *KeyVault) Get(ctx context.Context, name string) (string, error) {
	resp, err := k.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", err
	}
	if resp.Value == nil || *resp.Value == "" {
		return "", ErrEmptySecret
	}
	return *resp.Value, nil
}

// Values are the credentials the application needs.
type Values struct {
	SessionSecret      string
	GitHubClientID     string
	GitHubClientSecret string
	MongoURI           string
}

// Status reports where each value came from. It is shown by /health.
type Status struct {
	Source   string   `json:"source"` // "key-vault" or "config"
	Loaded   []string `json:"loaded,omitempty"`
	Fallback []string `json:"fallback,omitempty"`
}

// Overlay replaces each value in base with the vault's copy. A secret that
// cannot be fetched keeps its configured value, so a missing or unreachable
// vault degrades to configuration instead of failing startup. A nil src
// returns base unchanged.
func Overlay(ctx context.Context, src Source, base Values, logger *zap.Logger) (Values, Status) {
	if src == nil {
		return base, Status{Source: "config"}
	}

	out := base
	st := Status{Source: "key-vault", Loaded: []string{}, Fallback: []string{}}

	fields := []struct {
		name string
		dst  *string
	}{
		{SessionSecret, &out.SessionSecret},
		{GitHubClientID, &out.GitHubClientID},
		{GitHubClientSecret, &out.GitHubClientSecret},
		{MongoDBURI, &out.MongoURI},
	}

	for _, f := range fields {
		v, err := src.Get(ctx, f.name)
		if err != nil {
			logger.Warn("secret not loaded from key vault; using configured value",
				zap.String("secret", f.name),
				zap.Bool("configured", *f.dst != ""),
				zap.Error(err))
			st.Fallback = append(st.Fallback, f.name)
			continue
		}
		*f.dst = v
		st.Loaded = append(st.Loaded, f.name)
	}

	if len(st.Loaded) == 0 {
		st.Source = "config"
	}
	logger.Info("secrets overlay complete",
		zap.String("source", st.Source),
		zap.Strings("loaded", st.Loaded),
		zap.Strings("fallback", st.Fallback))
	return out, st
}

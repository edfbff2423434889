// Package backend selects and builds the remote task store named in the
// configuration.
package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"tasktracker/internal/auth"
	"tasktracker/internal/backend/googletasks"
	"tasktracker/internal/backend/local"
	"tasktracker/internal/backend/near"
	"tasktracker/internal/config"
	"tasktracker/internal/service"
)

// Open returns the service.Service for cfg's backend acting for the
// session's account. A signed-out session still yields a service; its
// mutations fail with service.ErrUnauthorized. Callers should close the
// result if it implements io.Closer.
func Open(ctx context.Context, cfg *config.Config, sess *auth.Session, logger *log.Logger) (service.Service, error) {
	switch name := cfg.BackendName(); name {
	case config.BackendNear:
		return openNear(ctx, cfg, sess, logger)
	case config.BackendGoogle:
		creds := sess.Credentials()
		if creds == nil {
			return nil, fmt.Errorf("%w: not logged in to google (run: tasktracker login)", service.ErrUnauthorized)
		}
		return googletasks.New(ctx, cfg, creds.Token, creds.AccountID)
	case config.BackendLocal:
		if err := cfg.EnsureDir(); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}
		logger.Debug("opening local store", "path", cfg.LocalDBPath())
		return local.Open(cfg.LocalDBPath(), sess.AccountID())
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s, %s or %s)",
			name, config.BackendNear, config.BackendGoogle, config.BackendLocal)
	}
}

// ResolveNearNetwork resolves cfg's NEAR network, importing near-cli-rs
// connections from cfg.Near.CLIConfig or the near-cli default location.
func ResolveNearNetwork(cfg *config.Config) (near.Network, error) {
	return near.ResolveNetwork(cfg.Near.Network, cfg.Near.RPCURL, nearCLIConfigPath(cfg))
}

func openNear(ctx context.Context, cfg *config.Config, sess *auth.Session, logger *log.Logger) (service.Service, error) {
	network, err := ResolveNearNetwork(cfg)
	if err != nil {
		return nil, err
	}

	var signer *near.Signer
	if creds := sess.Credentials(); creds != nil && creds.PrivateKey != "" {
		if creds.Network != "" && creds.Network != network.Name {
			logger.Warn("stored key belongs to another network", "key_network", creds.Network, "network", network.Name)
		}
		signer, err = near.NewSigner(creds.AccountID, creds.PublicKey, creds.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: stored access key: %v", service.ErrUnauthorized, err)
		}
	}

	apiKey := cfg.Near.APIKey
	if apiKey == "" {
		apiKey = network.APIKey
	}

	logger.Debug("using near network", "network", network.Name, "rpc", network.RPCURL, "contract", cfg.Near.ContractID)
	return near.New(ctx, near.Options{
		RPCURL:     network.RPCURL,
		ContractID: cfg.Near.ContractID,
		Gas:        cfg.Near.Gas,
		APIKey:     apiKey,
		Logger:     logger,
	}, signer)
}

func nearCLIConfigPath(cfg *config.Config) string {
	if cfg.Near.CLIConfig != "" {
		return cfg.Near.CLIConfig
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "near-cli", "config.toml")
}

// CheckCredentials reports whether creds can be used by their backend.
// NEAR keys are parsed; other backends have nothing to check offline.
func CheckCredentials(creds auth.Credentials) error {
	if creds.Backend != config.BackendNear {
		return nil
	}
	if _, err := near.NewSigner(creds.AccountID, creds.PublicKey, creds.PrivateKey); err != nil {
		return fmt.Errorf("invalid access key for %s: %w", creds.AccountID, err)
	}
	return nil
}

// GoogleOAuthConfig returns the OAuth client configuration used by login.
func GoogleOAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	return googletasks.OAuthConfig(cfg)
}

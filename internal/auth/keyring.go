package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"

	"tasktracker/internal/config"
)

const serviceName = "tasktracker"

// ErrNoCredentials is returned when nothing is stored for a backend.
var ErrNoCredentials = errors.New("not logged in")

// Credentials is what login stores for one backend.
type Credentials struct {
	Backend   string `json:"backend"`
	AccountID string `json:"account_id"`
	Network   string `json:"network,omitempty"`

	// NEAR function-call access key, in ed25519:<base58> form.
	PublicKey  string `json:"public_key,omitempty"`
	PrivateKey string `json:"private_key,omitempty"`

	// Google OAuth token.
	Token *oauth2.Token `json:"token,omitempty"`
}

// Keyring stores Credentials in the system keyring, one item per backend.
type Keyring struct {
	ring keyring.Keyring
}

// Open returns the keyring for cfg. The file backend, used when no system
// keyring is available, keeps its items under cfg.Dir/credentials.
func Open(cfg *config.Config) (*Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(cfg.Dir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("tasktracker-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Keyring{ring: ring}, nil
}

// NewKeyring wraps an existing keyring, e.g. keyring.NewArrayKeyring in tests.
func NewKeyring(ring keyring.Keyring) *Keyring {
	return &Keyring{ring: ring}
}

// Load returns the credentials stored for backend.
func (k *Keyring) Load(backend string) (*Credentials, error) {
	item, err := k.ring.Get(backend)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential %q: %w", backend, err)
	}

	var creds Credentials
	if err := json.Unmarshal(item.Data, &creds); err != nil {
		return nil, fmt.Errorf("invalid credential %q: %w", backend, err)
	}
	return &creds, nil
}

// Save stores creds under creds.Backend, replacing what was there.
func (k *Keyring) Save(creds Credentials) error {
	if creds.Backend == "" {
		return errors.New("credentials have no backend")
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	err = k.ring.Set(keyring.Item{
		Key:         creds.Backend,
		Data:        data,
		Label:       fmt.Sprintf("%s (%s)", serviceName, creds.Backend),
		Description: creds.AccountID,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", creds.Backend, err)
	}
	return nil
}

// Remove deletes the credentials of backend. Returns ErrNoCredentials if
// none were stored.
func (k *Keyring) Remove(backend string) error {
	// Not every keyring backend reports a missing key on Remove.
	if _, err := k.ring.Get(backend); errors.Is(err, keyring.ErrKeyNotFound) {
		return ErrNoCredentials
	}
	if err := k.ring.Remove(backend); err != nil {
		return fmt.Errorf("deleting credential %q: %w", backend, err)
	}
	return nil
}

package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tasktracker/internal/config"
)

// nearKeyFile is the layout near-cli writes to
// ~/.near-credentials/<network>/<account>.json.
type nearKeyFile struct {
	AccountID  string `json:"account_id"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// NearKeyPath returns the near-cli key file of account on network.
func NearKeyPath(dir, network, account string) string {
	return filepath.Join(dir, network, account+".json")
}

// ReadNearKeyFile loads NEAR credentials from a near-cli key file.
// account may be empty, in which case the file's account_id is used.
func ReadNearKeyFile(path, network, account string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read key file: %w", err)
	}

	var kf nearKeyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return Credentials{}, fmt.Errorf("invalid key file %s: %w", path, err)
	}
	if account == "" {
		account = kf.AccountID
	}
	if account == "" {
		return Credentials{}, fmt.Errorf("key file %s has no account_id", path)
	}
	if !strings.HasPrefix(kf.PrivateKey, "ed25519:") {
		return Credentials{}, fmt.Errorf("key file %s: unsupported private key type", path)
	}

	return Credentials{
		Backend:    config.BackendNear,
		AccountID:  account,
		Network:    network,
		PublicKey:  kf.PublicKey,
		PrivateKey: kf.PrivateKey,
	}, nil
}

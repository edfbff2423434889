package near

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const ed25519Prefix = "ed25519:"

// keyTypeED25519 is the borsh enum tag of ed25519 keys and signatures.
const keyTypeED25519 byte = 0

// Signer holds an account's function-call access key.
type Signer struct {
	AccountID  string
	PublicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// NewSigner parses a key pair in near-cli text form. publicKey may be
// empty; it is then derived from the private key.
func NewSigner(accountID, publicKey, privateKey string) (*Signer, error) {
	raw, err := decodeKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}

	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("private key: unexpected length %d", len(raw))
	}
	pub := priv.Public().(ed25519.PublicKey)

	if publicKey != "" {
		given, err := decodeKey(publicKey)
		if err != nil {
			return nil, fmt.Errorf("public key: %w", err)
		}
		if !pub.Equal(ed25519.PublicKey(given)) {
			return nil, fmt.Errorf("public key does not match private key")
		}
	}

	return &Signer{AccountID: accountID, PublicKey: pub, privateKey: priv}, nil
}

// PublicKeyString returns the public key in ed25519:<base58> form.
func (s *Signer) PublicKeyString() string {
	return EncodeKey(s.PublicKey)
}

// Sign signs msg with the access key.
func (s *Signer) Sign(msg []byte) []byte {
	return ed25519.Sign(s.privateKey, msg)
}

// EncodeKey renders key bytes in ed25519:<base58> form.
func EncodeKey(b []byte) string {
	return ed25519Prefix + base58.Encode(b)
}

func decodeKey(s string) ([]byte, error) {
	if !strings.HasPrefix(s, ed25519Prefix) {
		return nil, fmt.Errorf("unsupported key type in %q", truncate(s, 12))
	}
	b, err := base58.Decode(strings.TrimPrefix(s, ed25519Prefix))
	if err != nil {
		return nil, fmt.Errorf("invalid base58: %w", err)
	}
	return b, nil
}

func decodeHash(s string) ([32]byte, error) {
	var h [32]byte
	b, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("invalid block hash: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid block hash length %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

// GenerateKeypair creates an Ed25519 keypair and writes the raw public
// and private key bytes to the given paths. Used by tooling that
// provisions a new registry trust anchor; production signing happens
// out-of-band on the registry side.
func GenerateKeypair(privateKeyPath, publicKeyPath string) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}

	if err := os.WriteFile(privateKeyPath, priv, 0600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(publicKeyPath, pub, 0644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}

	return nil
}

// SignFile signs data with the raw Ed25519 private key stored at
// privateKeyPath and returns the signature as lowercase hex, matching
// the sidecar `.sig` format the registry stores alongside each manifest.
func SignFile(data []byte, privateKeyPath string) (string, error) {
	keyBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return "", fmt.Errorf("sign: read private key: %w", err)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("sign: private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(keyBytes))
	}

	sig := ed25519.Sign(ed25519.PrivateKey(keyBytes), data)
	return hex.EncodeToString(sig), nil
}

// LoadPublicKeyHex reads a raw public-key file (such as a cached
// registry.pub) and returns its contents as lowercase hex, suitable for
// VerifyEd25519.
func LoadPublicKeyHex(publicKeyPath string) (string, error) {
	keyBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return "", fmt.Errorf("load public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return "", fmt.Errorf("load public key: expected %d bytes, got %d", ed25519.PublicKeySize, len(keyBytes))
	}
	return hex.EncodeToString(keyBytes), nil
}

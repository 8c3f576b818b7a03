// Package crypto provides the digest and signature primitives used to
// verify registry trust material: file digests, detached Ed25519
// verification, and public-key fingerprints.
package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Sha256File streams path and returns its digest as 64 lowercase hex
// characters. It never loads the file fully into memory.
func Sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("sha256_file: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("sha256_file: read %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// CheckDigest compares a computed digest against an expected one and
// returns an error naming both values on mismatch.
func CheckDigest(path, computed, expected string) error {
	if computed != expected {
		return fmt.Errorf("digest mismatch for %s: computed=%s expected=%s", path, computed, expected)
	}
	return nil
}

// VerifyEd25519 checks a detached signature over payload. Malformed hex
// or a key/signature of the wrong length are returned as errors, distinct
// from a well-formed signature that simply fails verification (which
// returns false, nil).
func VerifyEd25519(payload []byte, publicKeyHex, signatureHex string) (bool, error) {
	pubBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false, fmt.Errorf("verify_ed25519: malformed public key hex: %w", err)
	}
	if len(pubBytes) != ed25519.PublicKeySize {
		return false, fmt.Errorf("verify_ed25519: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pubBytes))
	}

	sigBytes, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false, fmt.Errorf("verify_ed25519: malformed signature hex: %w", err)
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return false, fmt.Errorf("verify_ed25519: signature must be %d bytes, got %d", ed25519.SignatureSize, len(sigBytes))
	}

	return ed25519.Verify(ed25519.PublicKey(pubBytes), payload, sigBytes), nil
}

// KeyFingerprint returns the SHA-256 digest, as 64 lowercase hex
// characters, over the raw bytes of a public-key file. No trimming or
// re-encoding is applied; operators pin this value and the update
// pipeline compares it byte-for-byte.
func KeyFingerprint(publicKeyPath string) (string, error) {
	return Sha256File(publicKeyPath)
}

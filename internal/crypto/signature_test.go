package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestSha256File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	digest, err := Sha256File(path)
	if err != nil {
		t.Fatalf("Sha256File failed: %v", err)
	}

	if len(digest) != 64 {
		t.Fatalf("digest length = %d, want 64", len(digest))
	}
	if _, err := hex.DecodeString(digest); err != nil {
		t.Fatalf("digest is not valid hex: %v", err)
	}

	// deterministic: same input, same digest
	digest2, err := Sha256File(path)
	if err != nil {
		t.Fatalf("Sha256File second call failed: %v", err)
	}
	if digest != digest2 {
		t.Errorf("digest is not deterministic: %s vs %s", digest, digest2)
	}
}

func TestSha256File_MissingFile(t *testing.T) {
	_, err := Sha256File(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCheckDigest(t *testing.T) {
	if err := CheckDigest("a.txt", "abc", "abc"); err != nil {
		t.Errorf("unexpected error for matching digests: %v", err)
	}

	err := CheckDigest("a.txt", "abc", "def")
	if err == nil {
		t.Fatal("expected error for mismatched digests")
	}
	if !contains(err.Error(), "abc") || !contains(err.Error(), "def") {
		t.Errorf("error should name both digests, got: %v", err)
	}
}

func TestVerifyEd25519_RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	payload := []byte("registry manifest bytes")
	sig := ed25519.Sign(priv, payload)

	ok, err := VerifyEd25519(payload, hex.EncodeToString(pub), hex.EncodeToString(sig))
	if err != nil {
		t.Fatalf("VerifyEd25519 failed: %v", err)
	}
	if !ok {
		t.Error("expected valid signature to verify")
	}
}

func TestVerifyEd25519_WrongKeyReturnsFalseNotError(t *testing.T) {
	pub1, priv1, _ := ed25519.GenerateKey(nil)
	pub2, _, _ := ed25519.GenerateKey(nil)
	_ = pub1

	payload := []byte("payload")
	sig := ed25519.Sign(priv1, payload)

	ok, err := VerifyEd25519(payload, hex.EncodeToString(pub2), hex.EncodeToString(sig))
	if err != nil {
		t.Fatalf("well-formed mismatch should not error: %v", err)
	}
	if ok {
		t.Error("expected verification against wrong key to return false")
	}
}

func TestVerifyEd25519_MalformedHexIsError(t *testing.T) {
	_, err := VerifyEd25519([]byte("payload"), "not-hex!!", "also-not-hex")
	if err == nil {
		t.Fatal("expected error for malformed public key hex")
	}
}

func TestVerifyEd25519_WrongLengthIsError(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	payload := []byte("payload")
	sig := ed25519.Sign(priv, payload)

	// truncate the key
	shortKeyHex := hex.EncodeToString(pub)[:10]
	_, err := VerifyEd25519(payload, shortKeyHex, hex.EncodeToString(sig))
	if err == nil {
		t.Fatal("expected error for non-canonical key length")
	}
}

func TestKeyFingerprint(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.pub")
	if err := os.WriteFile(path, pub, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	fp1, err := KeyFingerprint(path)
	if err != nil {
		t.Fatalf("KeyFingerprint failed: %v", err)
	}
	fp2, err := Sha256File(path)
	if err != nil {
		t.Fatalf("Sha256File failed: %v", err)
	}

	if fp1 != fp2 {
		t.Errorf("KeyFingerprint should equal raw Sha256File: %s vs %s", fp1, fp2)
	}
	if len(fp1) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(fp1))
	}
}

func TestSignFileAndVerifyEd25519(t *testing.T) {
	dir := t.TempDir()
	privPath := filepath.Join(dir, "registry.key")
	pubPath := filepath.Join(dir, "registry.pub")

	if err := GenerateKeypair(privPath, pubPath); err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}

	payload := []byte(`name = "ripgrep"
version = "14.0.0"
`)

	sigHex, err := SignFile(payload, privPath)
	if err != nil {
		t.Fatalf("SignFile failed: %v", err)
	}

	pubHex, err := LoadPublicKeyHex(pubPath)
	if err != nil {
		t.Fatalf("LoadPublicKeyHex failed: %v", err)
	}

	ok, err := VerifyEd25519(payload, pubHex, sigHex)
	if err != nil {
		t.Fatalf("VerifyEd25519 failed: %v", err)
	}
	if !ok {
		t.Error("expected signature produced by SignFile to verify")
	}

	// tampering with the payload should fail verification, not error
	tampered := append([]byte{}, payload...)
	tampered[0] ^= 0xFF
	ok, err = VerifyEd25519(tampered, pubHex, sigHex)
	if err != nil {
		t.Fatalf("tampered verification should not error: %v", err)
	}
	if ok {
		t.Error("expected tampered payload to fail verification")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

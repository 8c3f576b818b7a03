package registryindex

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/crosspack/crosspack/internal/crypto"
)

func writeSignedManifest(t *testing.T, root, privKeyPath, name, version, body string) {
	t.Helper()

	dir := filepath.Join(root, "index", name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	manifestPath := filepath.Join(dir, version+".toml")
	if err := os.WriteFile(manifestPath, []byte(body), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	sigHex, err := crypto.SignFile([]byte(body), privKeyPath)
	if err != nil {
		t.Fatalf("sign manifest: %v", err)
	}
	if err := os.WriteFile(manifestPath+".sig", []byte(sigHex), 0644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
}

func setupSnapshot(t *testing.T) (root, privKeyPath string) {
	t.Helper()
	root = t.TempDir()

	privKeyPath = filepath.Join(root, "registry.key")
	pubKeyPath := filepath.Join(root, "registry.pub")
	if err := crypto.GenerateKeypair(privKeyPath, pubKeyPath); err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	return root, privKeyPath
}

const manifestBody = `
name = "ripgrep"
version = "%s"

[[artifacts]]
target = "x86_64-unknown-linux-gnu"
url = "https://example.com/ripgrep.tar.gz"
sha256 = "deadbeef"
`

func TestIndex_PackageVersions_SortedAscending(t *testing.T) {
	root, priv := setupSnapshot(t)

	writeSignedManifest(t, root, priv, "ripgrep", "14.0.0", sprintfManifest("14.0.0"))
	writeSignedManifest(t, root, priv, "ripgrep", "13.0.0", sprintfManifest("13.0.0"))

	idx := NewIndex(root)
	versions, err := idx.PackageVersions("ripgrep")
	if err != nil {
		t.Fatalf("PackageVersions failed: %v", err)
	}

	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].Version != "13.0.0" || versions[1].Version != "14.0.0" {
		t.Errorf("expected ascending order, got %s, %s", versions[0].Version, versions[1].Version)
	}
}

func TestIndex_PackageVersions_MissingSidecarIsFatal(t *testing.T) {
	root, priv := setupSnapshot(t)
	writeSignedManifest(t, root, priv, "ripgrep", "14.0.0", sprintfManifest("14.0.0"))

	sigPath := filepath.Join(root, "index", "ripgrep", "14.0.0.toml.sig")
	os.Remove(sigPath)

	idx := NewIndex(root)
	_, err := idx.PackageVersions("ripgrep")
	if err == nil {
		t.Fatal("expected error for missing sidecar signature")
	}
}

func TestIndex_PackageVersions_CorruptedSidecarFails(t *testing.T) {
	root, priv := setupSnapshot(t)
	writeSignedManifest(t, root, priv, "ripgrep", "14.0.0", sprintfManifest("14.0.0"))

	sigPath := filepath.Join(root, "index", "ripgrep", "14.0.0.toml.sig")
	os.WriteFile(sigPath, []byte("00"), 0644)

	idx := NewIndex(root)
	_, err := idx.PackageVersions("ripgrep")
	if err == nil {
		t.Fatal("expected error for corrupted signature")
	}
}

func TestIndex_PackageVersions_NotFound(t *testing.T) {
	root, _ := setupSnapshot(t)
	idx := NewIndex(root)
	_, err := idx.PackageVersions("nonexistent")
	if err == nil {
		t.Fatal("expected error for nonexistent package")
	}
}

func TestIndex_SearchNames(t *testing.T) {
	root, priv := setupSnapshot(t)
	writeSignedManifest(t, root, priv, "ripgrep", "14.0.0", sprintfManifest("14.0.0"))
	writeSignedManifest(t, root, priv, "ripgrep-all", "1.0.0", sprintfManifest("1.0.0"))
	writeSignedManifest(t, root, priv, "fd", "9.0.0", sprintfManifest("9.0.0"))

	idx := NewIndex(root)
	names, err := idx.SearchNames("ripgrep")
	if err != nil {
		t.Fatalf("SearchNames failed: %v", err)
	}

	if len(names) != 2 || names[0] != "ripgrep" || names[1] != "ripgrep-all" {
		t.Errorf("unexpected search results: %v", names)
	}
}

func sprintfManifest(version string) string {
	return fmt.Sprintf(manifestBody, version)
}

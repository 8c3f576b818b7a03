package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crosspack/crosspack/internal/installer"
	"github.com/crosspack/crosspack/internal/manifest"
)

// fakeBackend is an in-memory registryindex.MetadataBackend used to drive
// the resolver without touching disk or the network.
type fakeBackend struct {
	versions map[string][]*manifest.Manifest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{versions: make(map[string][]*manifest.Manifest)}
}

func (f *fakeBackend) add(m *manifest.Manifest) {
	f.versions[m.Name] = append(f.versions[m.Name], m)
}

func (f *fakeBackend) PackageVersions(name string) ([]*manifest.Manifest, error) {
	m, ok := f.versions[name]
	if !ok {
		return nil, fmt.Errorf("no-such-package: %s", name)
	}
	return m, nil
}

func (f *fakeBackend) SearchNames(needle string) ([]string, error) {
	var out []string
	for name := range f.versions {
		if strings.Contains(name, needle) {
			out = append(out, name)
		}
	}
	return out, nil
}

// binManifest builds a single-artifact manifest whose payload is a plain
// executable file for target, content-addressed against the bytes the
// caller hands in. It writes the matching cache artifact directly onto
// disk under layout's cache root so install tests never need a live
// download.
func binManifest(t *testing.T, layout *installer.Layout, name, version, target string, deps map[string]string, binName string, payload []byte) *manifest.Manifest {
	t.Helper()

	sum := sha256.Sum256(payload)
	digest := hex.EncodeToString(sum[:])

	cachePath := layout.CacheArtifactPath(name, version, target, "bin")
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		t.Fatalf("mkdir cache dir: %v", err)
	}
	if err := os.WriteFile(cachePath, payload, 0644); err != nil {
		t.Fatalf("write fake artifact: %v", err)
	}

	return &manifest.Manifest{
		Name:         name,
		Version:      version,
		Dependencies: deps,
		Artifacts: []manifest.Artifact{
			{
				Target:  target,
				URL:     "https://example.invalid/" + name + "/" + version + "/artifact.bin",
				SHA256:  digest,
				Archive: string(manifest.ArchiveBin),
				Binaries: []manifest.Binary{
					{Name: binName, Path: "artifact.bin"},
				},
			},
		},
	}
}

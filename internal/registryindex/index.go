// Package registryindex provides signed-manifest loading from a single
// snapshot and deterministic multi-source precedence over several
// configured snapshots.
package registryindex

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/crosspack/crosspack/internal/crypto"
	"github.com/crosspack/crosspack/internal/manifest"
)

// Index reads package manifests and performs name search from one
// snapshot root (state/registries/cache/<source>/).
type Index struct {
	root string

	mu        sync.Mutex
	pubKeyHex string
	pubKeyErr error
	loaded    bool
}

func NewIndex(snapshotRoot string) *Index {
	return &Index{root: snapshotRoot}
}

func (idx *Index) trustAnchor() (string, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.loaded {
		return idx.pubKeyHex, idx.pubKeyErr
	}
	idx.loaded = true

	idx.pubKeyHex, idx.pubKeyErr = crypto.LoadPublicKeyHex(filepath.Join(idx.root, "registry.pub"))
	return idx.pubKeyHex, idx.pubKeyErr
}

// PackageVersions reads every index/<name>/*.toml manifest, verifying
// each against its sidecar signature and the cached trust anchor, and
// returns the manifests sorted by semantic version ascending.
func (idx *Index) PackageVersions(name string) ([]*manifest.Manifest, error) {
	pubKeyHex, err := idx.trustAnchor()
	if err != nil {
		return nil, fmt.Errorf("trust: missing key: %w", err)
	}

	dir := filepath.Join(idx.root, "index", name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("package '%s' was not found", name)
		}
		return nil, fmt.Errorf("trust: read %s: %w", dir, err)
	}

	var manifests []*manifest.Manifest
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		manifestPath := filepath.Join(dir, entry.Name())
		m, err := idx.loadVerifiedManifest(manifestPath, pubKeyHex)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}

	if len(manifests) == 0 {
		return nil, fmt.Errorf("package '%s' was not found", name)
	}

	sort.Slice(manifests, func(i, j int) bool {
		vi, erri := semver.NewVersion(manifests[i].Version)
		vj, errj := semver.NewVersion(manifests[j].Version)
		if erri != nil || errj != nil {
			return manifests[i].Version < manifests[j].Version
		}
		return vi.LessThan(vj)
	})

	return manifests, nil
}

func (idx *Index) loadVerifiedManifest(manifestPath, pubKeyHex string) (*manifest.Manifest, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("trust: missing manifest %s: %w", manifestPath, err)
	}

	sigPath := manifestPath + ".sig"
	sigRaw, err := os.ReadFile(sigPath)
	if err != nil {
		return nil, fmt.Errorf("trust: missing sidecar signature for %s", manifestPath)
	}

	ok, err := crypto.VerifyEd25519(raw, pubKeyHex, strings.TrimSpace(string(sigRaw)))
	if err != nil {
		return nil, fmt.Errorf("trust: malformed signature for %s: %w", manifestPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("trust: signature-verify-false for %s", manifestPath)
	}

	m, err := manifest.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("trust: invalid manifest %s: %w", manifestPath, err)
	}

	return m, nil
}

// SearchNames returns index/ subdirectory names containing needle as a
// substring, sorted ascending. No signature verification is performed.
func (idx *Index) SearchNames(needle string) ([]string, error) {
	dir := filepath.Join(idx.root, "index")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("registryindex: read %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if strings.Contains(entry.Name(), needle) {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)
	return names, nil
}

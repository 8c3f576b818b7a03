// Package manifest parses the registry's on-wire package manifest format
// and classifies artifact archive kinds.
package manifest

import (
	"fmt"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ArchiveKind enumerates recognized artifact archive formats.
type ArchiveKind string

const (
	ArchiveZip     ArchiveKind = "zip"
	ArchiveTarGz   ArchiveKind = "tar.gz"
	ArchiveTarZst  ArchiveKind = "tar.zst"
	ArchiveBin     ArchiveKind = "bin"
	ArchiveMSI     ArchiveKind = "msi"
	ArchiveDMG     ArchiveKind = "dmg"
	ArchiveAppImg  ArchiveKind = "appimage"
)

var supportedArchiveKinds = []ArchiveKind{
	ArchiveZip, ArchiveTarGz, ArchiveTarZst, ArchiveBin, ArchiveMSI, ArchiveDMG, ArchiveAppImg,
}

// extension table for inference from a URL's final path segment.
var extensionTable = map[string]ArchiveKind{
	".zip":     ArchiveZip,
	".tar.gz":  ArchiveTarGz,
	".tgz":     ArchiveTarGz,
	".tar.zst": ArchiveTarZst,
	".msi":     ArchiveMSI,
	".dmg":     ArchiveDMG,
	".appimage": ArchiveAppImg,
}

func isSupportedArchiveKind(k ArchiveKind) bool {
	for _, s := range supportedArchiveKinds {
		if s == k {
			return true
		}
	}
	return false
}

// Binary is a single exposed executable within an installed package tree.
type Binary struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// Completion is a single exposed shell-completion file.
type Completion struct {
	Shell string `toml:"shell"`
	Path  string `toml:"path"`
}

var validShells = map[string]bool{"bash": true, "zsh": true, "fish": true, "powershell": true}

// Artifact is one target-specific downloadable payload for a package
// version.
type Artifact struct {
	Target          string       `toml:"target"`
	URL             string       `toml:"url"`
	SHA256          string       `toml:"sha256"`
	Size            int64        `toml:"size,omitempty"`
	Archive         string       `toml:"archive,omitempty"`
	StripComponents int          `toml:"strip_components,omitempty"`
	ArtifactRoot    string       `toml:"artifact_root,omitempty"`
	Binaries        []Binary     `toml:"binaries,omitempty"`
	Completions     []Completion `toml:"completions,omitempty"`
}

// ArchiveKind resolves this artifact's archive kind: explicit `archive`
// field first, then inference from the URL's final path segment's last
// extension, then a `bin` fallback for extensionless segments.
func (a *Artifact) ArchiveKind() (ArchiveKind, error) {
	if a.Archive != "" {
		kind := ArchiveKind(a.Archive)
		if !isSupportedArchiveKind(kind) {
			return "", fmt.Errorf("artifacts[%s].archive: unsupported archive kind %q, supported: %s",
				a.Target, a.Archive, joinKinds())
		}
		return kind, nil
	}

	segment := path.Base(a.URL)
	lower := strings.ToLower(segment)
	for ext, kind := range extensionTable {
		if strings.HasSuffix(lower, ext) {
			return kind, nil
		}
	}

	if idx := strings.LastIndex(lower, "."); idx >= 0 && idx < len(lower)-1 {
		return "", fmt.Errorf("artifacts[%s].url: cannot infer archive kind from %q, supported: %s",
			a.Target, segment, joinKinds())
	}

	return ArchiveBin, nil
}

func joinKinds() string {
	names := make([]string, len(supportedArchiveKinds))
	for i, k := range supportedArchiveKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// Validate enforces the strip_components/artifact_root constraints tied
// to bin/appimage kinds.
func (a *Artifact) Validate() error {
	if a.Target == "" {
		return fmt.Errorf("artifacts[]: target is required")
	}
	if a.URL == "" {
		return fmt.Errorf("artifacts[%s].url: required", a.Target)
	}
	if a.SHA256 == "" {
		return fmt.Errorf("artifacts[%s].sha256: required", a.Target)
	}

	kind, err := a.ArchiveKind()
	if err != nil {
		return err
	}

	if kind == ArchiveBin || kind == ArchiveAppImg {
		if a.StripComponents != 0 {
			return fmt.Errorf("artifacts[%s]: strip_components must be 0 for archive kind %q", a.Target, kind)
		}
		if a.ArtifactRoot != "" {
			return fmt.Errorf("artifacts[%s]: artifact_root is forbidden for archive kind %q", a.Target, kind)
		}
	}

	for _, c := range a.Completions {
		if !validShells[c.Shell] {
			return fmt.Errorf("artifacts[%s].completions[].shell: unrecognized shell %q", a.Target, c.Shell)
		}
	}

	return nil
}

// Manifest is the canonical per-(package, version) metadata document.
type Manifest struct {
	Name         string            `toml:"name"`
	Version      string            `toml:"version"`
	License      string            `toml:"license,omitempty"`
	Homepage     string            `toml:"homepage,omitempty"`
	Dependencies map[string]string `toml:"dependencies,omitempty"`
	Artifacts    []Artifact        `toml:"artifacts"`
}

var nameCharset = "abcdefghijklmnopqrstuvwxyz0123456789.-_+"

func validPackageName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !strings.ContainsRune(nameCharset, r) {
			return false
		}
	}
	return true
}

// Parse decodes and validates raw TOML manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: malformed TOML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate enforces the manifest's field-level invariants, including the
// at-most-one-artifact-per-target rule.
func (m *Manifest) Validate() error {
	if !validPackageName(m.Name) {
		return fmt.Errorf("name: %q is not a valid package identifier", m.Name)
	}
	if m.Version == "" {
		return fmt.Errorf("version: required")
	}

	seenTargets := make(map[string]bool, len(m.Artifacts))
	for i := range m.Artifacts {
		if err := m.Artifacts[i].Validate(); err != nil {
			return err
		}
		target := m.Artifacts[i].Target
		if seenTargets[target] {
			return fmt.Errorf("artifacts: duplicate artifact for target %q", target)
		}
		seenTargets[target] = true
	}

	return nil
}

// ArtifactForTarget returns the artifact matching the given target
// triple, or an error naming the package/version if none matches.
func (m *Manifest) ArtifactForTarget(target string) (*Artifact, error) {
	for i := range m.Artifacts {
		if m.Artifacts[i].Target == target {
			return &m.Artifacts[i], nil
		}
	}
	return nil, fmt.Errorf("no-artifact-for-target: %s@%s has no artifact for target %q", m.Name, m.Version, target)
}

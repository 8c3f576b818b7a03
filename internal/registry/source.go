// Package registry owns configured registry sources and their snapshot
// caches: sources.toml persistence, fingerprint pinning, and the
// sync/verify/swap update pipeline.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Kind is the transport used to sync a source's metadata.
type Kind string

const (
	KindGit        Kind = "git"
	KindFilesystem Kind = "filesystem"
)

// Source is one configured registry origin.
type Source struct {
	Name              string `toml:"name"`
	Kind              Kind   `toml:"kind"`
	Location          string `toml:"location"`
	Priority          uint   `toml:"priority"`
	FingerprintSHA256 string `toml:"fingerprint_sha256"`
	Enabled           *bool  `toml:"enabled,omitempty"`
	Description       string `toml:"description,omitempty"`
	AddedAtUnix       int64  `toml:"added_at_unix,omitempty"`
}

// IsEnabled defaults to true when Enabled is unset.
func (s *Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type sourcesFile struct {
	Version int      `toml:"version"`
	Sources []Source `toml:"sources"`
}

// Store owns state/registries/sources.toml for one prefix.
type Store struct {
	path string
}

func NewStore(sourcesTOMLPath string) *Store {
	return &Store{path: sourcesTOMLPath}
}

func (s *Store) load() (*sourcesFile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &sourcesFile{Version: 1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", s.path, err)
	}

	var f sourcesFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("registry: malformed %s: %w", s.path, err)
	}
	if f.Version == 0 {
		f.Version = 1
	}
	return &f, nil
}

func (s *Store) save(f *sourcesFile) error {
	sort.Slice(f.Sources, func(i, j int) bool {
		if f.Sources[i].Priority != f.Sources[j].Priority {
			return f.Sources[i].Priority < f.Sources[j].Priority
		}
		return f.Sources[i].Name < f.Sources[j].Name
	})

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("registry: create directory: %w", err)
	}

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("registry: marshal sources: %w", err)
	}

	return os.WriteFile(s.path, data, 0644)
}

// Add validates and appends one source record. No network access occurs
// here; reachability is only validated by Update.
func (s *Store) Add(src Source) error {
	if !nameRe.MatchString(src.Name) {
		return fmt.Errorf("config-invalid: source name %q does not match %s", src.Name, nameRe.String())
	}

	fp := strings.ToLower(src.FingerprintSHA256)
	if len(fp) != 64 {
		return fmt.Errorf("config-invalid: fingerprint_sha256 for %q must be exactly 64 hex characters, got %d", src.Name, len(fp))
	}
	src.FingerprintSHA256 = fp

	f, err := s.load()
	if err != nil {
		return err
	}

	for _, existing := range f.Sources {
		if existing.Name == src.Name {
			return fmt.Errorf("config-invalid: source %q already exists", src.Name)
		}
	}

	f.Sources = append(f.Sources, src)
	return s.save(f)
}

// List returns sources sorted by (priority asc, name asc).
func (s *Store) List() ([]Source, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}

	sort.Slice(f.Sources, func(i, j int) bool {
		if f.Sources[i].Priority != f.Sources[j].Priority {
			return f.Sources[i].Priority < f.Sources[j].Priority
		}
		return f.Sources[i].Name < f.Sources[j].Name
	})

	return f.Sources, nil
}

// Get returns one source by name.
func (s *Store) Get(name string) (*Source, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range f.Sources {
		if f.Sources[i].Name == name {
			return &f.Sources[i], nil
		}
	}
	return nil, fmt.Errorf("not-found: source %q is not configured", name)
}

// Remove deletes a source record. purgeCache additionally removes its
// on-disk snapshot cache; the caller supplies cacheDir since Store does
// not itself know the layout root.
func (s *Store) Remove(name string, purgeCache bool, cacheDir string) error {
	f, err := s.load()
	if err != nil {
		return err
	}

	idx := -1
	for i, src := range f.Sources {
		if src.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("not-found: source %q is not configured", name)
	}

	f.Sources = append(f.Sources[:idx], f.Sources[idx+1:]...)
	if err := s.save(f); err != nil {
		return err
	}

	if purgeCache {
		if err := os.RemoveAll(cacheDir); err != nil {
			return fmt.Errorf("registry: purge cache for %q: %w", name, err)
		}
	}

	return nil
}

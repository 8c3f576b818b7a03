package registryindex

import (
	"fmt"
	"sort"

	"github.com/crosspack/crosspack/internal/manifest"
	"github.com/crosspack/crosspack/internal/registry"
)

// MetadataBackend is the small capability set the resolver and
// orchestrator consume. A single Index and a Configured multi-source
// index both satisfy it.
type MetadataBackend interface {
	PackageVersions(name string) ([]*manifest.Manifest, error)
	SearchNames(needle string) ([]string, error)
}

// EligibleSource pairs a configured source with its backing index, once
// its snapshot has been confirmed Ready.
type EligibleSource struct {
	Source     registry.Source
	Index      *Index
	SnapshotID string
}

// Configured is the multi-source read-through index: it selects enabled
// sources with Ready snapshots, in (priority asc, name asc) order, and
// enforces no-mixing for per-name version lookups.
type Configured struct {
	eligible []EligibleSource
}

// NewConfigured builds a Configured index from the given sources, each
// mapped to its snapshot cache directory via cacheDirFor.
func NewConfigured(sources []registry.Source, cacheDirFor func(sourceName string) string) (*Configured, error) {
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Priority != sources[j].Priority {
			return sources[i].Priority < sources[j].Priority
		}
		return sources[i].Name < sources[j].Name
	})

	var eligible []EligibleSource
	for _, src := range sources {
		if !src.IsEnabled() {
			continue
		}
		state := registry.ReadSnapshotState(cacheDirFor(src.Name))
		if !state.Ready {
			continue
		}
		eligible = append(eligible, EligibleSource{
			Source:     src,
			Index:      NewIndex(cacheDirFor(src.Name)),
			SnapshotID: state.SnapshotID,
		})
	}

	if len(eligible) == 0 {
		return nil, fmt.Errorf("source: no sources have a ready snapshot; add a source and run update")
	}

	return &Configured{eligible: eligible}, nil
}

// PackageVersions iterates eligible sources in precedence order and
// returns the first source's versions. Results are never mixed across
// sources.
func (c *Configured) PackageVersions(name string) ([]*manifest.Manifest, error) {
	var lastErr error
	for _, es := range c.eligible {
		versions, err := es.Index.PackageVersions(name)
		if err != nil {
			lastErr = err
			continue
		}
		return versions, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("package '%s' was not found", name)
}

// SnapshotIDFor resolves the snapshot id of whichever eligible source
// would serve name, matching PackageVersions' own precedence order. It
// satisfies orchestrator.SnapshotResolver, binding every package in one
// transaction to the source that actually resolved it.
func (c *Configured) SnapshotIDFor(name string) (string, error) {
	for _, es := range c.eligible {
		if _, err := es.Index.PackageVersions(name); err == nil {
			return es.SnapshotID, nil
		}
	}
	return "", nil
}

// SourceNameFor resolves the configured source name that would serve
// name, matching PackageVersions' own precedence order. It satisfies
// orchestrator.SourceNameResolver, annotating a receipt with which
// source actually produced the install.
func (c *Configured) SourceNameFor(name string) (string, error) {
	for _, es := range c.eligible {
		if _, err := es.Index.PackageVersions(name); err == nil {
			return es.Source.Name, nil
		}
	}
	return "", nil
}

// SearchNames unions names across all eligible sources, deduplicated and
// sorted.
func (c *Configured) SearchNames(needle string) ([]string, error) {
	seen := make(map[string]bool)
	for _, es := range c.eligible {
		names, err := es.Index.SearchNames(needle)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			seen[n] = true
		}
	}

	result := make([]string, 0, len(seen))
	for n := range seen {
		result = append(result, n)
	}
	sort.Strings(result)
	return result, nil
}

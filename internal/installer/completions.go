package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crosspack/crosspack/internal/manifest"
)

// CompletionOwner reports which package, if any, owns a given
// (shell, file name) completion entry.
type CompletionOwner func(shell, name string) (ownerPkg string, owned bool)

// ExposeCompletions copies declared completion files into
// share/completions/packages/<shell>/, after the same ownership
// preflight as binaries, and returns "<shell>/<name>" identifiers in
// declaration order. Stale previously-owned entries no longer declared
// are removed and their shell directories pruned if left empty.
func ExposeCompletions(layout *Layout, pkgName, pkgDir string, declared []manifest.Completion, owner CompletionOwner, previouslyOwned []string) (exposed []string, err error) {
	declaredKeys := make(map[string]bool, len(declared))

	for _, c := range declared {
		name := filepath.Base(c.Path)
		key := c.Shell + "/" + name
		declaredKeys[key] = true

		if ownerPkg, owned := owner(c.Shell, name); owned && ownerPkg != pkgName {
			return exposed, fmt.Errorf("completion-collision: %q (%s) is already owned by package %q", name, c.Shell, ownerPkg)
		}

		destDir := layout.CompletionsDir(c.Shell)
		if err := os.MkdirAll(destDir, 0755); err != nil {
			return exposed, fmt.Errorf("install: create %s: %w", destDir, err)
		}

		src := filepath.Join(pkgDir, filepath.FromSlash(c.Path))
		if err := copyFile(src, filepath.Join(destDir, name)); err != nil {
			return exposed, fmt.Errorf("install: copy completion %s: %w", c.Path, err)
		}
		exposed = append(exposed, key)
	}

	for _, stale := range previouslyOwned {
		if declaredKeys[stale] {
			continue
		}
		if err := removeCompletionEntry(layout, stale); err != nil {
			return exposed, err
		}
	}

	return exposed, nil
}

// RemoveCompletions deletes every "<shell>/<name>" entry, pruning empty
// shell directories afterward.
func RemoveCompletions(layout *Layout, entries []string) error {
	for _, entry := range entries {
		if err := removeCompletionEntry(layout, entry); err != nil {
			return err
		}
	}
	return nil
}

func removeCompletionEntry(layout *Layout, entry string) error {
	shell, name := splitCompletionKey(entry)
	if shell == "" {
		return nil
	}
	dir := layout.CompletionsDir(shell)
	path := filepath.Join(dir, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("uninstall: remove completion %s: %w", path, err)
	}
	pruneIfEmpty(dir, layout.CompletionsRoot())
	return nil
}

func splitCompletionKey(entry string) (shell, name string) {
	for i := 0; i < len(entry); i++ {
		if entry[i] == '/' {
			return entry[:i], entry[i+1:]
		}
	}
	return "", ""
}

// pruneIfEmpty removes dir, and walks upward removing now-empty parent
// directories, stopping at floor (never removed itself).
func pruneIfEmpty(dir, floor string) {
	for dir != floor {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

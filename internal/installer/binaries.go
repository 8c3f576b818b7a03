package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/crosspack/crosspack/internal/manifest"
)

var binNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateBinaryName enforces the portable identifier rule for an
// exposed binary's link name: non-empty, no parent traversal, no path
// separators, matches a portable identifier pattern.
func ValidateBinaryName(name string) error {
	if name == "" {
		return fmt.Errorf("binary-name-invalid: exposed binary name is empty")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("binary-name-invalid: %q contains a path separator or traversal", name)
	}
	if !binNameRe.MatchString(name) {
		return fmt.Errorf("binary-name-invalid: %q is not a portable identifier", name)
	}
	return nil
}

// Owner reports which receipt, if any, currently owns binDir/name.
// ownerOf scans receipts and is supplied by the caller (the uninstall
// graph and install preflight both need this lookup but over different
// receipt sets, so it is passed in rather than read from disk here).
type Owner func(binName string) (ownerPkg string, owned bool)

// ExposeBinaries symlinks (Unix) or writes shims (Windows) for every
// declared binary of pkgName's installed tree into layout.BinDir(),
// after preflight validation, then removes stale entries previously
// owned by pkgName that are no longer declared.
func ExposeBinaries(layout *Layout, pkgName, pkgDir string, declared []manifest.Binary, owner Owner, previouslyOwned []string) (exposed []string, err error) {
	binDir := layout.BinDir()
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return nil, fmt.Errorf("install: create %s: %w", binDir, err)
	}

	declaredNames := make(map[string]bool, len(declared))

	for _, b := range declared {
		if err := ValidateBinaryName(b.Name); err != nil {
			return exposed, err
		}
		declaredNames[b.Name] = true

		linkPath := filepath.Join(binDir, binLinkName(b.Name))
		ownerPkg, owned := owner(b.Name)
		switch {
		case owned && ownerPkg != pkgName:
			return exposed, fmt.Errorf("binary-collision: %q is already owned by package %q", b.Name, ownerPkg)
		case !owned:
			if _, statErr := os.Lstat(linkPath); statErr == nil {
				return exposed, fmt.Errorf("binary-collision: %q already exists in bin/ and is unmanaged", b.Name)
			}
		}

		target := filepath.Join(pkgDir, filepath.FromSlash(b.Path))
		if err := createLink(target, linkPath, b.Name); err != nil {
			return exposed, err
		}
		exposed = append(exposed, b.Name)
	}

	for _, stale := range previouslyOwned {
		if declaredNames[stale] {
			continue
		}
		if err := os.Remove(filepath.Join(binDir, binLinkName(stale))); err != nil && !os.IsNotExist(err) {
			return exposed, fmt.Errorf("install: remove stale binary %q: %w", stale, err)
		}
	}

	return exposed, nil
}

// BinLinkPath returns the full bin/ path an exposed binary named name
// will occupy on this platform, suffix included.
func BinLinkPath(layout *Layout, name string) string {
	return filepath.Join(layout.BinDir(), binLinkName(name))
}

func binLinkName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".cmd"
	}
	return name
}

// createLink wires name in bin/ to target: a symlink on Unix, a .cmd
// shim forwarding to the absolute target path on Windows.
func createLink(target, linkPath, name string) error {
	os.Remove(linkPath)

	if runtime.GOOS == "windows" {
		return writeShim(target, linkPath)
	}

	if err := os.Symlink(target, linkPath); err != nil {
		return fmt.Errorf("install: symlink %s -> %s: %w", linkPath, target, err)
	}
	return nil
}

// writeShim emits a batch forwarder. The exact argv-propagation edge
// cases (quoted paths with embedded quotes) are left as a replaceable
// detail behind this function; callers never construct shim bytes
// directly.
func writeShim(target, linkPath string) error {
	content := "@echo off\r\n\"" + target + "\" %*\r\n"
	if err := os.WriteFile(linkPath, []byte(content), 0755); err != nil {
		return fmt.Errorf("install: write shim %s: %w", linkPath, err)
	}
	return nil
}

// RemoveBinaries deletes every named link from bin/, ignoring already
// absent entries.
func RemoveBinaries(layout *Layout, names []string) error {
	for _, name := range names {
		path := filepath.Join(layout.BinDir(), binLinkName(name))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("uninstall: remove binary %s: %w", path, err)
		}
	}
	return nil
}

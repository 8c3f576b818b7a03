package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FoldFilesystemTree computes a deterministic SHA-256 over a filesystem
// source tree: files are visited in sorted relative-path order, and the
// digest input is each path followed by its byte contents. Symlinks are
// followed as regular files.
func FoldFilesystemTree(root string) (string, error) {
	var relPaths []string
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		relPaths = append(relPaths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("registry: walk %s: %w", root, err)
	}

	sort.Strings(relPaths)

	h := sha256.New()
	for _, rel := range relPaths {
		io.WriteString(h, rel)
		h.Write([]byte{0})

		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return "", fmt.Errorf("registry: read %s: %w", rel, err)
		}
		h.Write(data)
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// CopyTree recursively copies a filesystem source root into dest,
// preserving relative structure. Used to sync a `filesystem` kind source
// into a scratch directory before validation.
func CopyTree(root, dest string) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode().Perm())
	})
}

func shortHex(s string, n int) string {
	s = strings.ToLower(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

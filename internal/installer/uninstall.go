package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// UninstallPlan is the result of computing the uninstall graph for one
// requested target.
type UninstallPlan struct {
	// Remove lists every package to delete: the target plus the subset
	// of its dependency closure unreachable from any surviving root.
	Remove []string
	// BlockedBy lists the sorted root package names that still reach the
	// target, if non-empty the target must not be removed.
	BlockedBy []string
}

// PlanUninstall reads every receipt under receiptsDir, builds the
// name->dependency graph, and computes reachability from remaining
// roots (install_reason=root receipts other than target itself).
func PlanUninstall(receiptsDir, target string) (*UninstallPlan, error) {
	receipts, err := loadAllReceipts(receiptsDir)
	if err != nil {
		return nil, err
	}
	if _, ok := receipts[target]; !ok {
		return &UninstallPlan{}, nil
	}

	deps := make(map[string][]string, len(receipts))
	for name, r := range receipts {
		for _, dep := range r.Dependencies {
			deps[name] = append(deps[name], depName(dep))
		}
	}

	var roots []string
	for name, r := range receipts {
		if name == target {
			continue
		}
		if r.InstallReason == ReasonRoot {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)

	reachable := make(map[string]bool)
	for _, root := range roots {
		reachFrom(root, deps, reachable)
	}

	if reachable[target] {
		var blockers []string
		for _, root := range roots {
			seen := make(map[string]bool)
			if reachesFrom(root, target, deps, seen) {
				blockers = append(blockers, root)
			}
		}
		sort.Strings(blockers)
		return &UninstallPlan{BlockedBy: blockers}, nil
	}

	closure := make(map[string]bool)
	reachFrom(target, deps, closure)
	closure[target] = true

	var remove []string
	for name := range closure {
		if !reachable[name] {
			remove = append(remove, name)
		}
	}
	sort.Strings(remove)

	return &UninstallPlan{Remove: remove}, nil
}

func reachFrom(start string, deps map[string][]string, visited map[string]bool) {
	if visited[start] {
		return
	}
	visited[start] = true
	for _, d := range deps[start] {
		reachFrom(d, deps, visited)
	}
}

func reachesFrom(start, target string, deps map[string][]string, visited map[string]bool) bool {
	if start == target {
		return true
	}
	if visited[start] {
		return false
	}
	visited[start] = true
	for _, d := range deps[start] {
		if reachesFrom(d, target, deps, visited) {
			return true
		}
	}
	return false
}

func depName(ref string) string {
	if idx := strings.IndexByte(ref, '@'); idx >= 0 {
		return ref[:idx]
	}
	return ref
}

// LoadAllReceipts reads every *.receipt file under receiptsDir, keyed by
// package name. It is exported for callers outside this package that
// need the current ownership map (binary/completion preflight, the
// orchestrator's plan diffing) without re-deriving the uninstall graph.
func LoadAllReceipts(receiptsDir string) (map[string]*Receipt, error) {
	return loadAllReceipts(receiptsDir)
}

func loadAllReceipts(receiptsDir string) (map[string]*Receipt, error) {
	out := make(map[string]*Receipt)
	entries, err := os.ReadDir(receiptsDir)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("uninstall: list %s: %w", receiptsDir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".receipt") {
			continue
		}
		r, err := ReadReceipt(filepath.Join(receiptsDir, e.Name()))
		if err != nil {
			return nil, err
		}
		out[r.Name] = r
	}
	return out, nil
}

// RemovePackage deletes one package's owned state: binaries,
// completions, receipt, package directory. It returns the package's
// cache_path for later prune consideration.
func RemovePackage(layout *Layout, r *Receipt) (cachePath string, err error) {
	if err := RemoveBinaries(layout, r.ExposedBinaries); err != nil {
		return "", err
	}
	if err := RemoveCompletions(layout, r.ExposedCompletions); err != nil {
		return "", err
	}
	if err := os.Remove(layout.ReceiptPath(r.Name)); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("uninstall: remove receipt for %s: %w", r.Name, err)
	}
	if err := os.RemoveAll(layout.PkgDir(r.Name, r.Version)); err != nil {
		return "", fmt.Errorf("uninstall: remove package dir for %s: %w", r.Name, err)
	}
	return r.CachePath, nil
}

// PruneUnreferencedCache deletes every path in candidates that is not
// referenced by any receipt in stillInstalled, gated by a safety check
// that the path is absolute, lies under cacheRoot, and contains no ".."
// components.
func PruneUnreferencedCache(cacheRoot string, candidates []string, stillInstalled map[string]*Receipt) error {
	referenced := make(map[string]bool, len(stillInstalled))
	for _, r := range stillInstalled {
		referenced[r.CachePath] = true
	}

	for _, path := range candidates {
		if referenced[path] {
			continue
		}
		if !isSafeCachePath(cacheRoot, path) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("uninstall: prune cache file %s: %w", path, err)
		}
	}
	return nil
}

func isSafeCachePath(cacheRoot, path string) bool {
	if !filepath.IsAbs(path) {
		return false
	}
	clean := filepath.Clean(path)
	for _, part := range strings.Split(clean, string(filepath.Separator)) {
		if part == ".." {
			return false
		}
	}
	rel, err := filepath.Rel(cacheRoot, clean)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

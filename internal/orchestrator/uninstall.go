package orchestrator

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/crosspack/crosspack/internal/installer"
	"github.com/crosspack/crosspack/internal/txn"
)

// Uninstall computes the uninstall graph for name (per the installer's
// dependency-reachability rule) and removes the target plus any
// dependency that becomes unreferenced, all inside one transaction.
// A target not currently installed reports "not installed" and opens no
// transaction; a target still reachable from a surviving root is
// blocked and reports its sorted blocking roots.
func (o *Orchestrator) Uninstall(name string) ([]LifecycleResult, error) {
	layout := o.Layout

	prior, err := readReceiptIfPresent(layout, name)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		return []LifecycleResult{{Name: name, Status: StatusNotInstalled}}, nil
	}

	planResult, err := installer.PlanUninstall(layout.ReceiptsDir(), name)
	if err != nil {
		return nil, err
	}
	if len(planResult.BlockedBy) > 0 {
		return []LifecycleResult{{
			Name:   name,
			Status: fmt.Sprintf("blocked-by-dependents: %v", planResult.BlockedBy),
		}}, nil
	}
	if len(planResult.Remove) == 0 {
		return []LifecycleResult{{Name: name, Status: StatusNotInstalled}}, nil
	}

	receipts, err := installer.LoadAllReceipts(layout.ReceiptsDir())
	if err != nil {
		return nil, err
	}

	var steps []txn.Step
	var results []LifecycleResult
	var cachePaths []string

	for _, pkgName := range planResult.Remove {
		r, ok := receipts[pkgName]
		if !ok {
			continue
		}
		steps = append(steps, txn.Step{
			Name: "remove_package:" + pkgName,
			Paths: append(
				append(binPathsFor(layout, r.ExposedBinaries), completionPathsFor(layout, r.ExposedCompletions)...),
				layout.ReceiptPath(pkgName), layout.PkgDir(pkgName, r.Version),
			),
			Do: func() error {
				cachePath, err := installer.RemovePackage(layout, r)
				if err != nil {
					return err
				}
				cachePaths = append(cachePaths, cachePath)
				return nil
			},
		})
		results = append(results, LifecycleResult{Name: pkgName, Version: r.Version, Status: StatusUninstalled})
	}

	stillInstalled := make(map[string]*installer.Receipt, len(receipts))
	for n, r := range receipts {
		if n == name || contains(planResult.Remove, n) {
			continue
		}
		stillInstalled[n] = r
	}

	steps = append(steps, txn.Step{
		Name: "prune_unreferenced_cache",
		Do: func() error {
			return installer.PruneUnreferencedCache(layout.CacheArtifactsRoot(), cachePaths, stillInstalled)
		},
	})

	now := time.Now().Unix()
	c := o.coordinator()
	txid := newTxID(now)
	if err := c.Run(txid, txn.OpUninstall, now, "", steps); err != nil {
		return nil, fmt.Errorf("uninstall: transaction %s: %w", txid, err)
	}

	return results, nil
}

func binPathsFor(layout *installer.Layout, names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, installer.BinLinkPath(layout, n))
	}
	return out
}

func completionPathsFor(layout *installer.Layout, entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, filepath.Join(layout.CompletionsRoot(), "packages", e))
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

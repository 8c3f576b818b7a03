package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crosspack/crosspack/internal/crypto"
	"github.com/crosspack/crosspack/internal/installer"
	"github.com/crosspack/crosspack/internal/netutil"
	"github.com/crosspack/crosspack/internal/txn"
)

// buildInstallSteps downloads (if needed) and stages the artifact for
// one planned package outside the transaction — the cache is
// content-addressed and redoing it is harmless — then returns the
// journaled steps that move the staged tree into place, expose its
// binaries and completions, write its receipt, and retire any
// previous-version package tree.
func (o *Orchestrator) buildInstallSteps(ctx context.Context, p PlannedPackage, target, snapshotID string, now int64, forceRedownload bool, depVersions map[string]string) ([]txn.Step, error) {
	layout := o.Layout
	m := p.Selection.Manifest
	version := p.Version()

	artifact, err := m.ArtifactForTarget(target)
	if err != nil {
		return nil, err
	}
	kind, err := artifact.ArchiveKind()
	if err != nil {
		return nil, err
	}

	cachePath := layout.CacheArtifactPath(m.Name, version, target, string(kind))
	if err := ensureArtifactCached(ctx, cachePath, artifact.URL, artifact.SHA256, forceRedownload); err != nil {
		return nil, fmt.Errorf("install: %s@%s: %w", m.Name, version, err)
	}

	// Scoped by package name so concurrent buildInstallSteps calls within
	// the same executePlan (same pid, same now) never share a staging
	// directory.
	tmpRoot := filepath.Join(layout.TmpRoot(o.PID, now), m.Name)
	rawDir := filepath.Join(tmpRoot, "raw")
	stagedDir := filepath.Join(tmpRoot, "staged")

	if err := installer.Extract(ctx, kind, cachePath, rawDir); err != nil {
		os.RemoveAll(tmpRoot)
		return nil, fmt.Errorf("install: extract %s@%s: %w", m.Name, version, err)
	}
	if err := installer.Stage(rawDir, stagedDir, artifact.ArtifactRoot, artifact.StripComponents); err != nil {
		os.RemoveAll(tmpRoot)
		return nil, fmt.Errorf("install: stage %s@%s: %w", m.Name, version, err)
	}

	pkgDir := layout.PkgDir(m.Name, version)

	var previouslyOwnedBins, previouslyOwnedCompletions []string
	if p.PriorReceipt != nil {
		previouslyOwnedBins = p.PriorReceipt.ExposedBinaries
		previouslyOwnedCompletions = p.PriorReceipt.ExposedCompletions
	}

	var deps []string
	for _, depName := range sortedDependencyNames(m.Dependencies) {
		if v, ok := depVersions[depName]; ok {
			deps = append(deps, installer.DependencyRef(depName, v))
		}
	}

	binPaths := make([]string, 0, len(artifact.Binaries))
	for _, b := range artifact.Binaries {
		binPaths = append(binPaths, installer.BinLinkPath(layout, b.Name))
	}
	completionPaths := make([]string, 0, len(artifact.Completions))
	for _, c := range artifact.Completions {
		completionPaths = append(completionPaths, filepath.Join(layout.CompletionsDir(c.Shell), filepath.Base(c.Path)))
	}

	var exposedBins, exposedCompletions []string

	steps := []txn.Step{
		{
			Name:  "install_package_tree:" + m.Name,
			Paths: []string{pkgDir},
			Do: func() error {
				return installer.AtomicMoveToPkgDir(stagedDir, pkgDir)
			},
		},
		{
			Name:  "expose_binaries:" + m.Name,
			Paths: binPaths,
			Do: func() error {
				var err error
				exposedBins, err = installer.ExposeBinaries(layout, m.Name, pkgDir, artifact.Binaries, binOwner(layout), previouslyOwnedBins)
				return err
			},
		},
		{
			Name:  "expose_completions:" + m.Name,
			Paths: completionPaths,
			Do: func() error {
				var err error
				exposedCompletions, err = installer.ExposeCompletions(layout, m.Name, pkgDir, artifact.Completions, completionOwner(layout), previouslyOwnedCompletions)
				return err
			},
		},
		{
			Name:  "write_receipt:" + m.Name,
			Paths: []string{layout.ReceiptPath(m.Name)},
			Do: func() error {
				return installer.WriteReceipt(layout.ReceiptPath(m.Name), installer.Receipt{
					Name:               m.Name,
					Version:            version,
					Target:             target,
					ArtifactURL:        artifact.URL,
					ArtifactSHA256:     artifact.SHA256,
					CachePath:          cachePath,
					ExposedBinaries:    exposedBins,
					ExposedCompletions: exposedCompletions,
					Dependencies:       deps,
					InstallReason:      p.Reason,
					InstallStatus:      "installed",
					InstalledAtUnix:    now,
					SnapshotID:         snapshotID,
					SourceName:         o.sourceNameFor(m.Name),
				})
			},
		},
	}

	if p.PriorReceipt != nil && p.PriorReceipt.Version != version {
		oldPkgDir := layout.PkgDir(m.Name, p.PriorReceipt.Version)
		steps = append(steps, txn.Step{
			Name:  "remove_previous_package_tree:" + m.Name,
			Paths: []string{oldPkgDir},
			Do: func() error {
				return os.RemoveAll(oldPkgDir)
			},
		})
	}

	return steps, nil
}

// buildReasonTransitionStep covers the case where a package needs no new
// artifact at all — its resolved version already matches what's
// installed — but its install_reason changed (typically a dependency
// promoted to a root by an explicit install request). Rewriting the
// receipt is the entire mutation.
func (o *Orchestrator) buildReasonTransitionStep(p PlannedPackage, now int64) txn.Step {
	layout := o.Layout
	name := p.Selection.Name
	reason := p.Reason
	return txn.Step{
		Name:  "update_install_reason:" + name,
		Paths: []string{layout.ReceiptPath(name)},
		Do: func() error {
			r, err := installer.ReadReceipt(layout.ReceiptPath(name))
			if err != nil {
				return err
			}
			r.InstallReason = reason
			return installer.WriteReceipt(layout.ReceiptPath(name), *r)
		},
	}
}

func ensureArtifactCached(ctx context.Context, cachePath, url, sha256Hex string, forceRedownload bool) error {
	if forceRedownload {
		os.Remove(cachePath)
	}

	if _, err := os.Stat(cachePath); err == nil {
		sum, err := crypto.Sha256File(cachePath)
		if err != nil {
			return err
		}
		if err := crypto.CheckDigest(cachePath, sum, sha256Hex); err == nil {
			return nil
		}
		os.Remove(cachePath)
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	_, err := netutil.DownloadToPath(ctx, url, cachePath, sha256Hex, netutil.DefaultConfig())
	return err
}

package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"

	"github.com/crosspack/crosspack/internal/resolver"
	"github.com/crosspack/crosspack/internal/txn"
)

// InstallOptions controls one Install call.
type InstallOptions struct {
	Target          string // target triple override; host triple if empty
	DryRun          bool
	ForceRedownload bool
}

// Install resolves roots against the orchestrator's backend and pin
// state, then installs every resolved package inside one transaction.
// DryRun produces a Preview and mutates nothing.
func (o *Orchestrator) Install(ctx context.Context, roots []resolver.Root, opts InstallOptions) ([]LifecycleResult, *Preview, error) {
	planned, err := o.resolvePlan(roots)
	if err != nil {
		return nil, nil, err
	}

	if opts.DryRun {
		preview := previewFromPlan("install", planned, nil)
		return nil, &preview, nil
	}

	results, err := o.executePlan(ctx, planned, opts)
	if err != nil {
		return nil, nil, err
	}
	return results, nil, nil
}

// UpgradeSingle upgrades one already-installed root package if a
// strictly-higher compatible version exists, preserving
// install_reason=root. If no higher version resolves, it reports
// up-to-date without opening a transaction or touching its
// dependencies.
func (o *Orchestrator) UpgradeSingle(ctx context.Context, name string, opts InstallOptions) ([]LifecycleResult, *Preview, error) {
	prior, err := readReceiptIfPresent(o.Layout, name)
	if err != nil {
		return nil, nil, err
	}
	if prior == nil {
		return nil, nil, fmt.Errorf("upgrade: %s is not installed", name)
	}

	planned, err := o.resolvePlan([]resolver.Root{{Name: name}})
	if err != nil {
		return nil, nil, err
	}

	var target *PlannedPackage
	for i := range planned {
		if planned[i].Selection.Name == name {
			target = &planned[i]
			break
		}
	}
	if target == nil {
		return nil, nil, fmt.Errorf("upgrade: resolver did not select %s", name)
	}

	priorVersion, err := semver.NewVersion(prior.Version)
	if err != nil {
		// A corrupt version string in the receipt should never block an
		// upgrade; treat it as lower than anything resolvable.
		priorVersion = semver.MustParse("0.0.0")
	}
	if !target.Selection.Version.GreaterThan(priorVersion) {
		return []LifecycleResult{{Name: name, Version: prior.Version, Status: StatusUpToDate}}, nil, nil
	}

	if opts.DryRun {
		preview := previewFromPlan("upgrade", planned, nil)
		return nil, &preview, nil
	}

	results, err := o.executePlan(ctx, planned, opts)
	if err != nil {
		return nil, nil, err
	}
	return results, nil, nil
}

// executePlan is the shared install/upgrade tail: classify every planned
// package against its prior receipt, build the journaled steps for
// whatever actually changed, and run them all as one transaction.
func (o *Orchestrator) executePlan(ctx context.Context, planned []PlannedPackage, opts InstallOptions) ([]LifecycleResult, error) {
	target := opts.Target
	if target == "" {
		target = HostTarget()
	}

	depVersions := resolvedVersions(planned)
	now := time.Now().Unix()

	names := make([]string, len(planned))
	for i, p := range planned {
		names[i] = p.Selection.Name
	}
	snapshotID, err := o.snapshotIDFor(names)
	if err != nil {
		return nil, err
	}

	// Each changed package's download/extract/stage work
	// (buildInstallSteps) touches only its own package-scoped tmp
	// directory, so the whole batch fetches concurrently; only the
	// final journaled-step assembly below needs plan order.
	pkgSteps := make([][]txn.Step, len(planned))
	var g errgroup.Group
	for i, p := range planned {
		change, changed := classify(p)
		if !changed || change.Kind == ChangeTransition {
			continue
		}
		i, p := i, p
		g.Go(func() error {
			built, err := o.buildInstallSteps(ctx, p, target, snapshotID, now, opts.ForceRedownload, depVersions)
			if err != nil {
				return err
			}
			pkgSteps[i] = built
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var steps []txn.Step
	var results []LifecycleResult

	for i, p := range planned {
		change, changed := classify(p)
		switch {
		case !changed:
			results = append(results, LifecycleResult{Name: p.Selection.Name, Version: p.Version(), Status: StatusUpToDate})
		case change.Kind == ChangeTransition:
			steps = append(steps, o.buildReasonTransitionStep(p, now))
			results = append(results, LifecycleResult{Name: p.Selection.Name, Version: p.Version(), Status: StatusUpToDate})
		default:
			steps = append(steps, pkgSteps[i]...)
			status := StatusInstalled
			if p.PriorReceipt != nil {
				status = StatusUpgraded
			}
			results = append(results, LifecycleResult{Name: p.Selection.Name, Version: p.Version(), Status: status})
		}
	}

	if len(steps) == 0 {
		return results, nil
	}

	c := o.coordinator()
	txid := newTxID(now)
	if err := c.Run(txid, txn.OpInstall, now, snapshotID, steps); err != nil {
		return nil, fmt.Errorf("install: transaction %s: %w", txid, err)
	}

	return results, nil
}

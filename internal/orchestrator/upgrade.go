package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/crosspack/crosspack/internal/installer"
	"github.com/crosspack/crosspack/internal/resolver"
)

// UpgradeGlobal resolves every installed root, grouped by its install
// target (state is name-keyed, so two targets can never hold the same
// name at once), and applies every group's plan as its own transaction
// only after the whole batch passes two whole-plan safety checks:
// no-downgrade across every group, and disjoint package names across
// groups.
func (o *Orchestrator) UpgradeGlobal(ctx context.Context, opts InstallOptions) (map[string][]LifecycleResult, *Preview, error) {
	receipts, err := installer.LoadAllReceipts(o.Layout.ReceiptsDir())
	if err != nil {
		return nil, nil, err
	}

	groups := make(map[string][]*installer.Receipt)
	for _, r := range receipts {
		if r.InstallReason != installer.ReasonRoot {
			continue
		}
		groups[r.Target] = append(groups[r.Target], r)
	}

	targets := make([]string, 0, len(groups))
	for t := range groups {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	plansByTarget := make(map[string][]PlannedPackage, len(targets))
	for _, t := range targets {
		roots := make([]resolver.Root, 0, len(groups[t]))
		for _, r := range groups[t] {
			roots = append(roots, resolver.Root{Name: r.Name})
		}
		sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })

		planned, err := o.resolvePlan(roots)
		if err != nil {
			return nil, nil, fmt.Errorf("upgrade: resolve target %s: %w", t, err)
		}
		plansByTarget[t] = planned
	}

	if err := checkNoDowngrade(groups, plansByTarget); err != nil {
		return nil, nil, err
	}
	if err := checkDisjointNames(targets, plansByTarget); err != nil {
		return nil, nil, err
	}

	if opts.DryRun {
		var allChanges []Change
		for _, t := range targets {
			for _, p := range plansByTarget[t] {
				if c, ok := classify(p); ok {
					allChanges = append(allChanges, c)
				}
			}
		}
		preview := Preview{Operation: "upgrade", Changes: allChanges}
		return nil, &preview, nil
	}

	results := make(map[string][]LifecycleResult, len(targets))
	for _, t := range targets {
		targetOpts := opts
		targetOpts.Target = t
		r, err := o.executePlan(ctx, plansByTarget[t], targetOpts)
		if err != nil {
			return nil, nil, fmt.Errorf("upgrade: target %s: %w", t, err)
		}
		results[t] = r
	}
	return results, nil, nil
}

// checkNoDowngrade fails if any resolved version is strictly less than
// the currently-installed version of the same package in the same
// target group.
func checkNoDowngrade(installedByTarget map[string][]*installer.Receipt, plansByTarget map[string][]PlannedPackage) error {
	for target, installed := range installedByTarget {
		installedVersions := make(map[string]string, len(installed))
		for _, r := range installed {
			installedVersions[r.Name] = r.Version
		}
		for _, p := range plansByTarget[target] {
			prevRaw, ok := installedVersions[p.Selection.Name]
			if !ok {
				continue
			}
			prev, err := semver.NewVersion(prevRaw)
			if err != nil {
				continue
			}
			if p.Selection.Version.LessThan(prev) {
				return fmt.Errorf("downgrade-rejected: %s would go from %s to %s on target %s",
					p.Selection.Name, prevRaw, p.Version(), target)
			}
		}
	}
	return nil
}

// checkDisjointNames fails if the same package name appears in more
// than one target group's plan: applying both would cross-contaminate
// the single-keyed receipt space.
func checkDisjointNames(targets []string, plansByTarget map[string][]PlannedPackage) error {
	owner := make(map[string]string)
	for _, t := range targets {
		for _, p := range plansByTarget[t] {
			name := p.Selection.Name
			if other, seen := owner[name]; seen && other != t {
				return fmt.Errorf("cross-target-overlap: %s appears in both target %s and target %s", name, other, t)
			}
			owner[name] = t
		}
	}
	return nil
}

package orchestrator

import (
	"os"
	"sort"

	"github.com/crosspack/crosspack/internal/installer"
	"github.com/crosspack/crosspack/internal/resolver"
)

// PlannedPackage is one resolved package in dependency-first order,
// annotated against the currently-installed receipt (if any) so the
// caller can tell a fresh install from an upgrade, a downgrade, or a
// reason transition.
type PlannedPackage struct {
	Selection    resolver.Selection
	PriorReceipt *installer.Receipt
	Reason       installer.InstallReason
}

// Version returns the resolved semantic version as a string.
func (p PlannedPackage) Version() string { return p.Selection.Version.String() }

// resolvePlan runs the resolver against roots and returns the resulting
// selections in topo order, each paired with its current on-disk
// receipt state and the install_reason it will carry forward: explicit
// roots always become (or stay) root; everything else keeps its prior
// reason if it had one, or starts as dependency.
func (o *Orchestrator) resolvePlan(roots []resolver.Root) ([]PlannedPackage, error) {
	pins, err := installer.LoadPins(o.Layout.PinsDir())
	if err != nil {
		return nil, err
	}

	r := resolver.New(o.Backend, pins)
	selections, err := r.Resolve(roots)
	if err != nil {
		return nil, err
	}

	ordered, err := resolver.TopoOrder(selections)
	if err != nil {
		return nil, err
	}

	rootNames := make(map[string]bool, len(roots))
	for _, root := range roots {
		rootNames[root.Name] = true
	}

	planned := make([]PlannedPackage, 0, len(ordered))
	for _, sel := range ordered {
		prior, err := readReceiptIfPresent(o.Layout, sel.Name)
		if err != nil {
			return nil, err
		}

		reason := installer.ReasonDependency
		if prior != nil {
			reason = prior.InstallReason
		}
		if rootNames[sel.Name] {
			reason = installer.ReasonRoot
		}

		planned = append(planned, PlannedPackage{Selection: sel, PriorReceipt: prior, Reason: reason})
	}
	return planned, nil
}

func readReceiptIfPresent(layout *installer.Layout, name string) (*installer.Receipt, error) {
	path := layout.ReceiptPath(name)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return installer.ReadReceipt(path)
}

// resolvedVersions builds a name->version lookup over a full plan, used
// to stamp dependency=name@version entries into each package's receipt.
func resolvedVersions(planned []PlannedPackage) map[string]string {
	out := make(map[string]string, len(planned))
	for _, p := range planned {
		out[p.Selection.Name] = p.Version()
	}
	return out
}

func sortedDependencyNames(deps map[string]string) []string {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

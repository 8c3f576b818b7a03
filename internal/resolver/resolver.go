// Package resolver implements the backtracking constraint solver that
// turns a set of root requirements and pins into a deterministic install
// plan.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/crosspack/crosspack/internal/manifest"
)

// Backend is the capability set the resolver needs from a metadata
// source: versions available for a package name.
type Backend interface {
	PackageVersions(name string) ([]*manifest.Manifest, error)
}

// Root is one top-level requested package, optionally constrained.
type Root struct {
	Name       string
	Constraint string // semver constraint string; empty means "any"
}

// Selection is one resolved (version, manifest) pair, in selection
// order.
type Selection struct {
	Name     string
	Version  *semver.Version
	Manifest *manifest.Manifest
}

// Resolver runs one resolve() call's worth of backtracking state.
type Resolver struct {
	backend Backend
	pins    map[string]string

	selected      map[string]Selection
	selectedOrder []string
	constraints   map[string][]*semver.Constraints
	versionsCache map[string][]*manifest.Manifest

	// stack tracks the names currently under active resolution (selected
	// but not yet returned from their resolveNext frame), for cycle
	// detection: a dependency pointing back at a name still on the stack
	// means the dependency graph among the packages being resolved has a
	// cycle, not merely a re-used already-finalized selection.
	stack   []string
	onStack map[string]bool
}

// New constructs a Resolver against backend, with pins mapping package
// name to an optional stored semver requirement.
func New(backend Backend, pins map[string]string) *Resolver {
	return &Resolver{
		backend:       backend,
		pins:          pins,
		selected:      make(map[string]Selection),
		constraints:   make(map[string][]*semver.Constraints),
		versionsCache: make(map[string][]*manifest.Manifest),
		onStack:       make(map[string]bool),
	}
}

// Resolve runs the backtracking algorithm over the given roots and
// returns the selection map in deterministic selection order.
func (r *Resolver) Resolve(roots []Root) ([]Selection, error) {
	for _, root := range roots {
		if err := r.pushConstraint(root.Name, root.Constraint); err != nil {
			return nil, err
		}
	}

	if err := r.resolveNext(); err != nil {
		return nil, err
	}

	result := make([]Selection, 0, len(r.selectedOrder))
	for _, name := range r.selectedOrder {
		result = append(result, r.selected[name])
	}
	return result, nil
}

func (r *Resolver) pushConstraint(name, constraint string) error {
	if constraint == "" {
		r.constraints[name] = append(r.constraints[name], nil)
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("no matching version for %s: invalid constraint %q: %w", name, constraint, err)
	}
	r.constraints[name] = append(r.constraints[name], c)
	return nil
}

// resolveNext picks the smallest unselected key with constraints, tries
// candidates highest-version-first, and recurses.
func (r *Resolver) resolveNext() error {
	name, ok := r.nextUnselectedName()
	if !ok {
		return nil
	}

	candidates, err := r.candidatesFor(name)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no matching version for %s%s", name, r.diagnosticSuffix(name))
	}

	r.stack = append(r.stack, name)
	r.onStack[name] = true
	defer func() {
		r.stack = r.stack[:len(r.stack)-1]
		delete(r.onStack, name)
	}()

	for _, candidate := range candidates {
		if !r.selectedSatisfiesConstraints(name, candidate) {
			continue
		}

		if cycleErr := r.checkCycle(candidate.Manifest.Dependencies); cycleErr != nil {
			return cycleErr
		}

		preLengths := make(map[string]int, len(candidate.Manifest.Dependencies))
		var pushedDeps []string

		r.selected[name] = Selection{Name: name, Version: candidate.Version, Manifest: candidate.Manifest}
		r.selectedOrder = append(r.selectedOrder, name)

		ok := true
		depNames := sortedDepNames(candidate.Manifest.Dependencies)
		for _, dep := range depNames {
			preLengths[dep] = len(r.constraints[dep])
			if err := r.pushConstraint(dep, candidate.Manifest.Dependencies[dep]); err != nil {
				ok = false
				break
			}
			pushedDeps = append(pushedDeps, dep)
		}

		if ok {
			err := r.resolveNext()
			if err == nil {
				return nil
			}
			if isCycleError(err) {
				// a structural cycle is not resolved by trying a
				// different version; rollback and propagate immediately
				for _, dep := range pushedDeps {
					r.constraints[dep] = r.constraints[dep][:preLengths[dep]]
				}
				delete(r.selected, name)
				r.selectedOrder = r.selectedOrder[:len(r.selectedOrder)-1]
				return err
			}
		}

		// rollback: pop pushed requirements, remove candidate, try next
		for _, dep := range pushedDeps {
			r.constraints[dep] = r.constraints[dep][:preLengths[dep]]
		}
		delete(r.selected, name)
		r.selectedOrder = r.selectedOrder[:len(r.selectedOrder)-1]
	}

	return fmt.Errorf("no matching version for %s%s", name, r.diagnosticSuffix(name))
}

// checkCycle reports a dependency-cycle error if any dependency name is
// already on the active resolution stack.
func (r *Resolver) checkCycle(deps map[string]string) error {
	for dep := range deps {
		if !r.onStack[dep] {
			continue
		}
		// cycle runs from dep's position on the stack to the top, plus dep
		idx := -1
		for i, n := range r.stack {
			if n == dep {
				idx = i
				break
			}
		}
		cycle := append([]string{}, r.stack[idx:]...)
		sort.Strings(cycle)
		return &cycleError{nodes: cycle}
	}
	return nil
}

type cycleError struct {
	nodes []string
}

func (e *cycleError) Error() string {
	out := "dependency cycle detected: "
	for i, n := range e.nodes {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}

func isCycleError(err error) bool {
	_, ok := err.(*cycleError)
	return ok
}

func (r *Resolver) diagnosticSuffix(name string) string {
	parts := make([]string, 0, len(r.constraints[name]))
	for _, c := range r.constraints[name] {
		if c == nil {
			continue
		}
		parts = append(parts, c.String())
	}
	suffix := fmt.Sprintf(" (constraints: [%s])", strings.Join(parts, ", "))
	if pin, ok := r.pins[name]; ok && pin != "" {
		suffix += fmt.Sprintf(" pin=%s", pin)
	}
	return suffix
}

// nextUnselectedName returns the smallest key in constraints with no
// entry in selected.
func (r *Resolver) nextUnselectedName() (string, bool) {
	names := make([]string, 0, len(r.constraints))
	for name := range r.constraints {
		if _, done := r.selected[name]; !done {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	return names[0], true
}

type candidate struct {
	Version  *semver.Version
	Manifest *manifest.Manifest
}

// candidatesFor returns every known version of name satisfying all
// pushed constraints and the pin (if any), highest version first.
func (r *Resolver) candidatesFor(name string) ([]candidate, error) {
	manifests, ok := r.versionsCache[name]
	if !ok {
		var err error
		manifests, err = r.backend.PackageVersions(name)
		if err != nil {
			return nil, err
		}
		r.versionsCache[name] = manifests
	}

	pinConstraint, hasPin := (*semver.Constraints)(nil), false
	if pin, ok := r.pins[name]; ok && pin != "" {
		c, err := semver.NewConstraint(pin)
		if err != nil {
			return nil, fmt.Errorf("no matching version for %s: invalid pin %q: %w", name, pin, err)
		}
		pinConstraint, hasPin = c, true
	}

	var out []candidate
	for _, m := range manifests {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			continue
		}

		satisfies := true
		for _, c := range r.constraints[name] {
			if c != nil && !c.Check(v) {
				satisfies = false
				break
			}
		}
		if satisfies && hasPin && !pinConstraint.Check(v) {
			satisfies = false
		}
		if satisfies {
			out = append(out, candidate{Version: v, Manifest: m})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Version.GreaterThan(out[j].Version)
	})

	return out, nil
}

// selectedSatisfiesConstraints checks that already-selected packages
// still satisfy any constraints the candidate's dependencies would
// introduce, without mutating state.
func (r *Resolver) selectedSatisfiesConstraints(name string, c candidate) bool {
	for dep, req := range c.Manifest.Dependencies {
		sel, ok := r.selected[dep]
		if !ok || req == "" {
			continue
		}
		constraint, err := semver.NewConstraint(req)
		if err != nil {
			return false
		}
		if !constraint.Check(sel.Version) {
			return false
		}
	}
	_ = name
	return true
}

func sortedDepNames(deps map[string]string) []string {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

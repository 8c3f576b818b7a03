package orchestrator

import (
	"fmt"
	"strings"
)

// ChangeKind classifies one line of a dry-run preview.
type ChangeKind string

const (
	ChangeAdd        ChangeKind = "change_add"
	ChangeRemove     ChangeKind = "change_remove"
	ChangeReplace    ChangeKind = "change_replace"
	ChangeTransition ChangeKind = "change_transition"
)

// Change is one entry in a transaction preview.
type Change struct {
	Kind        ChangeKind
	Name        string
	FromVersion string
	ToVersion   string
}

// Line renders the fixed machine-oriented shape for this change.
func (c Change) Line() string {
	switch c.Kind {
	case ChangeAdd:
		return fmt.Sprintf("change_add name=%s version=%s", c.Name, c.ToVersion)
	case ChangeRemove:
		return fmt.Sprintf("change_remove name=%s version=%s", c.Name, c.FromVersion)
	case ChangeReplace:
		return fmt.Sprintf("change_replace name=%s from=%s to=%s", c.Name, c.FromVersion, c.ToVersion)
	case ChangeTransition:
		return fmt.Sprintf("change_transition name=%s version=%s", c.Name, c.ToVersion)
	default:
		return ""
	}
}

// classify compares a planned package against its prior receipt. It
// returns ok=false when the package represents no change at all (same
// version, same install_reason) — nothing worth previewing.
func classify(p PlannedPackage) (Change, bool) {
	if p.PriorReceipt == nil {
		return Change{Kind: ChangeAdd, Name: p.Selection.Name, ToVersion: p.Version()}, true
	}
	if p.PriorReceipt.Version != p.Version() {
		return Change{Kind: ChangeReplace, Name: p.Selection.Name, FromVersion: p.PriorReceipt.Version, ToVersion: p.Version()}, true
	}
	if p.PriorReceipt.InstallReason != p.Reason {
		return Change{Kind: ChangeTransition, Name: p.Selection.Name, ToVersion: p.Version()}, true
	}
	return Change{}, false
}

// Preview is the dry-run description of one operation's effect, emitted
// verbatim in the fixed machine-oriented shape and never mutating
// anything on disk.
type Preview struct {
	Operation string
	Changes   []Change
	RiskFlags []string
}

// Render produces the preview's stable output lines.
func (p Preview) Render() []string {
	var adds, removals, replacements, transitions int
	for _, c := range p.Changes {
		switch c.Kind {
		case ChangeAdd:
			adds++
		case ChangeRemove:
			removals++
		case ChangeReplace:
			replacements++
		case ChangeTransition:
			transitions++
		}
	}

	flags := "none"
	if len(p.RiskFlags) > 0 {
		flags = strings.Join(p.RiskFlags, ",")
	}

	lines := []string{
		fmt.Sprintf("transaction_preview operation=%s mode=dry-run", p.Operation),
		fmt.Sprintf("transaction_summary adds=%d removals=%d replacements=%d transitions=%d", adds, removals, replacements, transitions),
		"risk_flags=" + flags,
	}
	for _, c := range p.Changes {
		lines = append(lines, c.Line())
	}
	return lines
}

// previewFromPlan builds a Preview from a resolved plan, skipping
// packages with no change.
func previewFromPlan(operation string, planned []PlannedPackage, riskFlags []string) Preview {
	var changes []Change
	for _, p := range planned {
		if c, ok := classify(p); ok {
			changes = append(changes, c)
		}
	}
	return Preview{Operation: operation, Changes: changes, RiskFlags: riskFlags}
}

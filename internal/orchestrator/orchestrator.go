// Package orchestrator wires the resolver and installer under the
// transaction coordinator into the user-visible install/upgrade/uninstall
// lifecycle, enforcing cross-target safety and snapshot-id binding.
package orchestrator

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/crosspack/crosspack/internal/installer"
	"github.com/crosspack/crosspack/internal/registryindex"
	"github.com/crosspack/crosspack/internal/txn"
)

// Lifecycle status tokens. Their shape is the output contract: renderer
// decoration is additive and must never alter these strings.
const (
	StatusInstalled    = "installed"
	StatusUpgraded     = "upgraded"
	StatusUpToDate     = "up-to-date"
	StatusUninstalled  = "uninstalled"
	StatusNotInstalled = "not installed"
)

// LifecycleResult is one stable output line for a single package touched
// by an operation.
type LifecycleResult struct {
	Name    string
	Version string
	Status  string
}

// Line renders the fixed `<name> <version> <status>` shape, or
// `<name> <status>` when Version is empty (uninstall of an unknown
// package has no version to report).
func (r LifecycleResult) Line() string {
	if r.Version == "" {
		return fmt.Sprintf("%s %s", r.Name, r.Status)
	}
	return fmt.Sprintf("%s %s %s", r.Name, r.Version, r.Status)
}

// SnapshotResolver resolves the snapshot id of the configured source
// that would serve a package name, or "" if the backend doesn't bind
// snapshot ids (a bare registry-root override, for instance).
type SnapshotResolver func(name string) (string, error)

// SourceNameResolver resolves the configured source name that would
// serve a package name, or "" if the backend has no notion of named
// sources (a bare registry-root override, for instance). Purely
// descriptive: unlike SnapshotResolver it is never used to reject a
// transaction, only to annotate a receipt.
type SourceNameResolver func(name string) (string, error)

// Orchestrator holds the collaborators one prefix needs to run
// mutations: the prefix layout, the metadata backend the resolver reads
// from, and the snapshot/source-name binding rules for the backend in
// use.
type Orchestrator struct {
	Layout       *installer.Layout
	Backend      registryindex.MetadataBackend
	SnapshotIDOf SnapshotResolver
	SourceNameOf SourceNameResolver
	PID          int
}

// New constructs an Orchestrator. snapshotIDOf may be nil.
func New(layout *installer.Layout, backend registryindex.MetadataBackend, snapshotIDOf SnapshotResolver) *Orchestrator {
	return &Orchestrator{
		Layout:       layout,
		Backend:      backend,
		SnapshotIDOf: snapshotIDOf,
		PID:          os.Getpid(),
	}
}

var txnCounter uint64

// newTxID produces a per-process-monotone, globally unique transaction
// id: the timestamp plus an atomic counter give monotonicity within this
// process, the uuid suffix gives collision freedom across processes
// sharing a timestamp.
func newTxID(startedAtUnix int64) string {
	n := atomic.AddUint64(&txnCounter, 1)
	return fmt.Sprintf("%d-%04d-%s", startedAtUnix, n, uuid.NewString()[:8])
}

func (o *Orchestrator) coordinator() *txn.Coordinator {
	l := o.Layout
	return &txn.Coordinator{
		TransactionsDir: l.TransactionsDir(),
		ActiveMarker:    l.ActiveMarker(),
		StagingDir:      l.TransactionStaging,
		MetaPath:        l.TransactionMeta,
		JournalPath:     l.TransactionJournal,
	}
}

// snapshotIDFor validates that every name in a plan resolves to the same
// snapshot id before any mutation begins. Packages whose backend does
// not report a snapshot id (SnapshotIDOf nil, or an empty id) are
// exempt; the bound id is whatever the participating named sources
// agree on.
func (o *Orchestrator) snapshotIDFor(names []string) (string, error) {
	if o.SnapshotIDOf == nil {
		return "", nil
	}
	var bound string
	for _, name := range names {
		id, err := o.SnapshotIDOf(name)
		if err != nil {
			return "", err
		}
		if id == "" {
			continue
		}
		if bound == "" {
			bound = id
			continue
		}
		if bound != id {
			return "", fmt.Errorf("transaction: snapshot-id-mismatch: %s resolved from snapshot %q, transaction already bound to %q", name, id, bound)
		}
	}
	return bound, nil
}

// sourceNameFor reports the configured source name serving a single
// package, or "" if the backend has no such notion. Purely descriptive,
// so unlike snapshotIDFor it never errors the caller out.
func (o *Orchestrator) sourceNameFor(name string) string {
	if o.SourceNameOf == nil {
		return ""
	}
	n, err := o.SourceNameOf(name)
	if err != nil {
		return ""
	}
	return n
}

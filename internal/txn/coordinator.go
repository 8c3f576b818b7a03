package txn

import (
	"fmt"
	"os"
)

// Step is one journaled unit of mutation. Paths lists every filesystem
// path Do will mutate; each is snapshotted before Do runs, so rollback
// can restore it without needing anything but the journal payload.
type Step struct {
	Name  string
	Paths []string
	Do    func() error
}

// Coordinator drives one transaction's lifecycle against a layout's
// state/transactions/ directory.
type Coordinator struct {
	TransactionsDir string
	ActiveMarker    string
	StagingDir      func(txid string) string
	MetaPath        func(txid string) string
	JournalPath     func(txid string) string
}

// Run executes steps as one transaction: preflight, claim, apply with
// journaling, and commit. Any step failure triggers rollback replay and
// the error returned names the original failure, not the rollback
// outcome (rollback failures surface via the transaction's on-disk
// status, inspectable by `repair`).
func (c *Coordinator) Run(txid string, operation Operation, startedAtUnix int64, snapshotID string, steps []Step) error {
	if err := c.preflight(); err != nil {
		return err
	}

	metaPath := c.MetaPath(txid)
	if err := WriteMeta(metaPath, Meta{
		TxID: txid, Operation: operation, Status: StatusPlanning,
		StartedAtUnix: startedAtUnix, SnapshotID: snapshotID,
	}); err != nil {
		return err
	}

	if err := CreateActiveMarker(c.ActiveMarker, txid); err != nil {
		return err
	}

	if err := WriteMeta(metaPath, Meta{
		TxID: txid, Operation: operation, Status: StatusApplying,
		StartedAtUnix: startedAtUnix, SnapshotID: snapshotID,
	}); err != nil {
		return err
	}

	journalPath := c.JournalPath(txid)
	j, err := OpenJournal(journalPath)
	if err != nil {
		return err
	}
	defer j.Close()

	if applyErr := c.apply(txid, j, steps); applyErr != nil {
		rollbackErr := c.Rollback(txid)
		if rollbackErr != nil {
			return fmt.Errorf("%w (rollback also failed, run `repair`: %v)", applyErr, rollbackErr)
		}
		return applyErr
	}

	if err := WriteMeta(metaPath, Meta{
		TxID: txid, Operation: operation, Status: StatusCommitted,
		StartedAtUnix: startedAtUnix, SnapshotID: snapshotID,
	}); err != nil {
		return err
	}
	if err := RemoveActiveMarker(c.ActiveMarker); err != nil {
		return err
	}
	return os.RemoveAll(c.StagingDir(txid))
}

func (c *Coordinator) preflight() error {
	txid, ok, err := ReadActiveMarker(c.ActiveMarker)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return c.Recover(txid)
}

func (c *Coordinator) apply(txid string, j *Journal, steps []Step) error {
	for _, step := range steps {
		payload, err := SnapshotPaths(c.StagingDir(txid), j.seq+1, step.Paths)
		if err != nil {
			return fmt.Errorf("transaction: snapshot step %q: %w", step.Name, err)
		}

		if _, err := j.Append(step.Name, EntryStarted, nil); err != nil {
			return err
		}

		if err := step.Do(); err != nil {
			j.Append(step.Name, EntryFailed, nil)
			return fmt.Errorf("transaction: step %q failed: %w", step.Name, err)
		}

		if _, err := j.Append(step.Name, EntryDone, payload); err != nil {
			return err
		}
	}
	return nil
}

package txn

import "fmt"

// Rollback replays a transaction's journal in reverse `seq` order,
// restoring every `state=done` step from its snapshot payload. It is
// safe to call more than once: restoring an already-restored path is a
// no-op (see RestorePaths).
func (c *Coordinator) Rollback(txid string) error {
	metaPath := c.MetaPath(txid)
	meta, err := ReadMeta(metaPath)
	if err != nil {
		return err
	}

	meta.Status = StatusRollingBack
	if err := WriteMeta(metaPath, *meta); err != nil {
		return err
	}

	entries, err := ReadJournal(c.JournalPath(txid))
	if err != nil {
		return err
	}

	for _, e := range DoneEntriesReverse(entries) {
		if err := RestorePaths(e.Payload); err != nil {
			meta.Status = StatusFailed
			WriteMeta(metaPath, *meta)
			return fmt.Errorf("transaction: rollback-failed: step %q (seq %d): %w", e.Step, e.Seq, err)
		}
	}

	meta.Status = StatusRolledBack
	if err := WriteMeta(metaPath, *meta); err != nil {
		return err
	}
	return RemoveActiveMarker(c.ActiveMarker)
}

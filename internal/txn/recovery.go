package txn

import (
	"fmt"
	"os"
)

// Recover dispatches on a discovered stale `active` marker, based on
// the bound transaction's recorded status:
//   - planning or applying: auto-rollback
//   - committed: finalize (delete active, prune staging)
//   - rolling_back: resume rollback
//   - failed: block further mutation; instruct the operator to run repair
func (c *Coordinator) Recover(txid string) error {
	meta, err := ReadMeta(c.MetaPath(txid))
	if err != nil {
		return err
	}

	switch meta.Status {
	case StatusPlanning, StatusApplying, StatusRollingBack:
		return c.Rollback(txid)
	case StatusCommitted:
		if err := RemoveActiveMarker(c.ActiveMarker); err != nil {
			return err
		}
		return os.RemoveAll(c.StagingDir(txid))
	case StatusFailed:
		return fmt.Errorf("transaction: repair-required: transaction %s failed and needs `repair` before any further mutation", txid)
	default:
		return fmt.Errorf("transaction: journal-corrupt: unknown status %q for %s", meta.Status, txid)
	}
}

// Repair reconciles a `failed` transaction by re-running rollback
// replay with strict error surfacing, clearing the active marker once
// the replay succeeds.
func (c *Coordinator) Repair(txid string) error {
	meta, err := ReadMeta(c.MetaPath(txid))
	if err != nil {
		return err
	}
	if meta.Status != StatusFailed {
		return fmt.Errorf("transaction: repair: %s is not in failed state (status=%s)", txid, meta.Status)
	}
	return c.Rollback(txid)
}

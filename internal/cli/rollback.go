package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/installer"
	"github.com/crosspack/crosspack/internal/txn"
)

func GetRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback [txid]",
		Short: "Roll back a transaction (defaults to the currently active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRollback,
	}
}

func coordinatorFor(layout *installer.Layout) *txn.Coordinator {
	return &txn.Coordinator{
		TransactionsDir: layout.TransactionsDir(),
		ActiveMarker:    layout.ActiveMarker(),
		StagingDir:      layout.TransactionStaging,
		MetaPath:        layout.TransactionMeta,
		JournalPath:     layout.TransactionJournal,
	}
}

func runRollback(cmd *cobra.Command, args []string) error {
	prefix, err := resolvePrefix()
	if err != nil {
		return err
	}
	layout := installer.NewLayout(prefix)
	c := coordinatorFor(layout)

	txid := ""
	if len(args) == 1 {
		txid = args[0]
	} else {
		active, ok, err := txn.ReadActiveMarker(layout.ActiveMarker())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no active transaction to roll back")
			return nil
		}
		txid = active
	}

	if err := c.Rollback(txid); err != nil {
		return err
	}
	fmt.Printf("transaction %s rolled back\n", txid)
	return nil
}

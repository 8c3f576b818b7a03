package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/installer"
	"github.com/crosspack/crosspack/internal/txn"
)

func GetRepairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair [txid]",
		Short: "Reconcile a failed transaction, defaulting to the currently active one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRepair,
	}
}

func runRepair(cmd *cobra.Command, args []string) error {
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
			fmt.Println("no active transaction to repair")
			return nil
		}
		txid = active
	}

	if err := c.Repair(txid); err != nil {
		return err
	}
	fmt.Printf("transaction %s repaired\n", txid)
	return nil
}

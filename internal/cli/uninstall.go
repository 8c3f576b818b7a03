package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/observability/logging"
)

func GetUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <name>",
		Short: "Remove an installed package and any dependency it solely owns",
		Args:  cobra.ExactArgs(1),
		RunE:  runUninstall,
	}
}

func runUninstall(cmd *cobra.Command, args []string) error {
	ctx, end := startSpan(cmd.Context(), "uninstall")
	defer end()
	logger := logging.From(ctx)
	start := time.Now()

	o, err := newOrchestrator()
	if err != nil {
		return err
	}

	logger.Event(ctx, "uninstall.start", map[string]any{"package": args[0]})

	results, err := o.Uninstall(args[0])
	if err != nil {
		logger.Event(ctx, "uninstall.failed", map[string]any{"error": err.Error()})
		writeAuditReceipt(ctx, "uninstall", args, start, nil, err)
		return err
	}

	for _, r := range results {
		fmt.Println(r.Line())
	}
	writeAuditReceipt(ctx, "uninstall", args, start, results, nil)
	return nil
}

package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/observability/logging"
	"github.com/crosspack/crosspack/internal/orchestrator"
)

var upgradeDryRunFlag bool

func GetUpgradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade [name]",
		Short: "Upgrade one package, or every installed root when no name is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runUpgrade,
	}
	cmd.Flags().BoolVar(&upgradeDryRunFlag, "dry-run", false, "Preview the plan without mutating the prefix")
	return cmd
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	ctx, end := startSpan(cmd.Context(), "upgrade")
	defer end()
	logger := logging.From(ctx)
	start := time.Now()

	o, err := newOrchestrator()
	if err != nil {
		return err
	}

	opts := orchestrator.InstallOptions{DryRun: upgradeDryRunFlag}

	if len(args) == 1 {
		logger.Event(ctx, "upgrade.start", map[string]any{"package": args[0]})
		results, preview, err := o.UpgradeSingle(ctx, args[0], opts)
		if err != nil {
			logger.Event(ctx, "upgrade.failed", map[string]any{"error": err.Error()})
			writeAuditReceipt(ctx, "upgrade", args, start, nil, err)
			return err
		}
		if preview != nil {
			printLines(preview.Render())
			return nil
		}
		for _, r := range results {
			fmt.Println(r.Line())
		}
		writeAuditReceipt(ctx, "upgrade", args, start, results, nil)
		return nil
	}

	logger.Event(ctx, "upgrade.start", map[string]any{"scope": "global"})
	byTarget, preview, err := o.UpgradeGlobal(ctx, opts)
	if err != nil {
		logger.Event(ctx, "upgrade.failed", map[string]any{"error": err.Error()})
		writeAuditReceipt(ctx, "upgrade", args, start, nil, err)
		return err
	}
	if preview != nil {
		printLines(preview.Render())
		return nil
	}

	targets := make([]string, 0, len(byTarget))
	for t := range byTarget {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	var all []orchestrator.LifecycleResult
	for _, t := range targets {
		for _, r := range byTarget[t] {
			fmt.Println(r.Line())
			all = append(all, r)
		}
	}
	writeAuditReceipt(ctx, "upgrade", args, start, all, nil)
	return nil
}

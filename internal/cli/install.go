package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/observability/logging"
	"github.com/crosspack/crosspack/internal/orchestrator"
	"github.com/crosspack/crosspack/internal/resolver"
)

var (
	installTargetFlag string
	installDryRunFlag bool
	installForceFlag  bool
)

func GetInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <name[@constraint]>...",
		Short: "Resolve and install one or more packages",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runInstall,
	}
	cmd.Flags().StringVar(&installTargetFlag, "target", "", "Target triple override (default: host)")
	cmd.Flags().BoolVar(&installDryRunFlag, "dry-run", false, "Preview the plan without mutating the prefix")
	cmd.Flags().BoolVar(&installForceFlag, "force-redownload", false, "Re-download artifacts even if already cached")
	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, end := startSpan(cmd.Context(), "install")
	defer end()
	logger := logging.From(ctx)
	start := time.Now()

	roots := make([]resolver.Root, len(args))
	for i, a := range args {
		name, constraint := parseRootArg(a)
		roots[i] = resolver.Root{Name: name, Constraint: constraint}
	}

	o, err := newOrchestrator()
	if err != nil {
		return err
	}

	logger.Event(ctx, "install.start", map[string]any{"packages": args})

	results, preview, err := o.Install(ctx, roots, orchestrator.InstallOptions{
		Target:          installTargetFlag,
		DryRun:          installDryRunFlag,
		ForceRedownload: installForceFlag,
	})
	if err != nil {
		logger.Event(ctx, "install.failed", map[string]any{"error": err.Error()})
		writeAuditReceipt(ctx, "install", args, start, nil, err)
		return err
	}

	if preview != nil {
		printLines(preview.Render())
		logger.Event(ctx, "install.complete", map[string]any{"mode": "dry-run"})
		return nil
	}

	for _, r := range results {
		fmt.Println(r.Line())
	}
	logger.Event(ctx, "install.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds()})
	writeAuditReceipt(ctx, "install", args, start, results, nil)
	return nil
}

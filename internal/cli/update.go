package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/installer"
	"github.com/crosspack/crosspack/internal/observability/logging"
	"github.com/crosspack/crosspack/internal/registry"
)

func GetUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Sync every enabled registry source's snapshot",
		Args:  cobra.NoArgs,
		RunE:  runUpdate,
	}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx, end := startSpan(cmd.Context(), "update")
	defer end()
	logger := logging.From(ctx)

	prefix, err := resolvePrefix()
	if err != nil {
		return err
	}
	layout := installer.NewLayout(prefix)
	store := registry.NewStore(layout.SourcesTOML())

	sources, err := store.List()
	if err != nil {
		return err
	}

	var updated, upToDate, failed int
	for _, src := range sources {
		if !src.IsEnabled() {
			continue
		}
		scratch := layout.TmpRoot(os.Getpid(), time.Now().Unix())
		result := registry.Update(src, layout.SourceCacheDir(src.Name), scratch)
		os.RemoveAll(scratch)

		switch result.Status {
		case registry.StatusUpdated:
			updated++
			fmt.Printf("%s updated snapshot=%s\n", src.Name, result.SnapshotID)
		case registry.StatusUpToDate:
			upToDate++
			fmt.Printf("%s up-to-date\n", src.Name)
		case registry.StatusFailed:
			failed++
			fmt.Printf("%s failed: %v\n", src.Name, result.Err)
			logger.Event(ctx, "update.source_failed", map[string]any{"source": src.Name, "error": result.Err.Error()})
		}
	}

	fmt.Printf("update summary: updated=%d up-to-date=%d failed=%d\n", updated, upToDate, failed)
	logger.Event(ctx, "update.complete", map[string]any{"updated": updated, "up_to_date": upToDate, "failed": failed})

	if failed > 0 {
		return fmt.Errorf("update: %d source(s) failed", failed)
	}
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/installer"
)

func GetInitShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-shell",
		Short: "Print a shell snippet that adds the prefix's bin directory to PATH",
		Args:  cobra.NoArgs,
		RunE:  runInitShell,
	}
}

func runInitShell(cmd *cobra.Command, args []string) error {
	prefix, err := resolvePrefix()
	if err != nil {
		return err
	}
	layout := installer.NewLayout(prefix)
	fmt.Printf("export PATH=%q:\"$PATH\"\n", layout.BinDir())
	return nil
}

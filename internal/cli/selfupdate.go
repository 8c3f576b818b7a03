package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/version"
)

func GetSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Report the current crosspack version",
		Args:  cobra.NoArgs,
		RunE:  runSelfUpdate,
	}
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	fmt.Printf("current version: %s\n", version.BuildVersion())
	fmt.Println("self-update: not implemented in this build")
	return nil
}

package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/installer"
)

func GetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every package installed in the prefix",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	prefix, err := resolvePrefix()
	if err != nil {
		return err
	}
	layout := installer.NewLayout(prefix)

	receipts, err := installer.LoadAllReceipts(layout.ReceiptsDir())
	if err != nil {
		return err
	}
	if len(receipts) == 0 {
		fmt.Println("no packages installed")
		return nil
	}

	names := make([]string, 0, len(receipts))
	for name := range receipts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r := receipts[name]
		fmt.Printf("%s %s %s %s\n", r.Name, r.Version, r.Target, r.InstallReason)
	}
	return nil
}

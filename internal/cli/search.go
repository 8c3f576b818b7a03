package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func GetSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <needle>",
		Short: "List package names matching a substring across configured sources",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	o, err := newOrchestrator()
	if err != nil {
		return err
	}

	names, err := o.Backend.SearchNames(args[0])
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no packages matched")
		return nil
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

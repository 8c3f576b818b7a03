package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/installer"
)

func GetPinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin <name[@constraint]>",
		Short: "Pin a package to a semver requirement, or clear its pin with a bare name",
		Args:  cobra.ExactArgs(1),
		RunE:  runPin,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all active pins",
		Args:  cobra.NoArgs,
		RunE:  runPinList,
	})
	return cmd
}

func runPin(cmd *cobra.Command, args []string) error {
	prefix, err := resolvePrefix()
	if err != nil {
		return err
	}
	layout := installer.NewLayout(prefix)

	name, constraint := parseRootArg(args[0])
	path := layout.PinPath(name)

	if constraint == "" {
		if err := installer.RemovePin(path); err != nil {
			return err
		}
		fmt.Printf("%s unpinned\n", name)
		return nil
	}

	if err := installer.WritePin(path, constraint); err != nil {
		return err
	}
	fmt.Printf("%s pinned to %s\n", name, constraint)
	return nil
}

func runPinList(cmd *cobra.Command, args []string) error {
	prefix, err := resolvePrefix()
	if err != nil {
		return err
	}
	layout := installer.NewLayout(prefix)

	pins, err := installer.LoadPins(layout.PinsDir())
	if err != nil {
		return err
	}
	if len(pins) == 0 {
		fmt.Println("no pins configured")
		return nil
	}
	names := make([]string, 0, len(pins))
	for name := range pins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s %s\n", name, pins[name])
	}
	return nil
}

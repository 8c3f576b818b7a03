package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/installer"
)

func GetInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show available versions and local install state for a package",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}
}

func runInfo(cmd *cobra.Command, args []string) error {
	name := args[0]

	prefix, err := resolvePrefix()
	if err != nil {
		return err
	}
	layout := installer.NewLayout(prefix)

	o, err := newOrchestrator()
	if err != nil {
		return err
	}

	versions, err := o.Backend.PackageVersions(name)
	if err != nil {
		return err
	}

	sort.Slice(versions, func(i, j int) bool {
		vi, erri := semver.NewVersion(versions[i].Version)
		vj, errj := semver.NewVersion(versions[j].Version)
		if erri != nil || errj != nil {
			return versions[i].Version < versions[j].Version
		}
		return vi.LessThan(vj)
	})

	fmt.Printf("name=%s\n", name)
	for _, m := range versions {
		fmt.Printf("version=%s\n", m.Version)
	}

	if _, err := os.Stat(layout.ReceiptPath(name)); err == nil {
		r, err := installer.ReadReceipt(layout.ReceiptPath(name))
		if err != nil {
			return err
		}
		fmt.Printf("installed=%s target=%s reason=%s\n", r.Version, r.Target, r.InstallReason)
		if r.SourceName != "" {
			fmt.Printf("source=%s\n", r.SourceName)
		}
	} else {
		fmt.Println("installed=none")
	}

	return nil
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/installer"
	"github.com/crosspack/crosspack/internal/registry"
)

var (
	registryAddKindFlag        string
	registryAddPriorityFlag    uint
	registryAddFingerprintFlag string
	registryAddDescriptionFlag string
	registryRemovePurgeFlag    bool
)

func GetRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage configured registry sources",
	}

	addCmd := &cobra.Command{
		Use:   "add <name> <location>",
		Short: "Add a new registry source",
		Args:  cobra.ExactArgs(2),
		RunE:  runRegistryAdd,
	}
	addCmd.Flags().StringVar(&registryAddKindFlag, "kind", "git", "Source kind: git or filesystem")
	addCmd.Flags().UintVar(&registryAddPriorityFlag, "priority", 0, "Lower priority values are preferred on name conflicts")
	addCmd.Flags().StringVar(&registryAddFingerprintFlag, "fingerprint-sha256", "", "Expected SHA-256 fingerprint of the source's registry.pub (required)")
	addCmd.Flags().StringVar(&registryAddDescriptionFlag, "description", "", "Optional free-text description")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured sources",
		Args:  cobra.NoArgs,
		RunE:  runRegistryList,
	})

	removeCmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a configured source",
		Args:  cobra.ExactArgs(1),
		RunE:  runRegistryRemove,
	}
	removeCmd.Flags().BoolVar(&registryRemovePurgeFlag, "purge-cache", false, "Also delete the source's cached snapshot")
	cmd.AddCommand(removeCmd)

	return cmd
}

func registryStore() (*registry.Store, *installer.Layout, error) {
	prefix, err := resolvePrefix()
	if err != nil {
		return nil, nil, err
	}
	layout := installer.NewLayout(prefix)
	return registry.NewStore(layout.SourcesTOML()), layout, nil
}

func runRegistryAdd(cmd *cobra.Command, args []string) error {
	store, _, err := registryStore()
	if err != nil {
		return err
	}

	src := registry.Source{
		Name:              args[0],
		Kind:              registry.Kind(registryAddKindFlag),
		Location:          args[1],
		Priority:          registryAddPriorityFlag,
		FingerprintSHA256: registryAddFingerprintFlag,
		Description:       registryAddDescriptionFlag,
		AddedAtUnix:       time.Now().Unix(),
	}
	if err := store.Add(src); err != nil {
		return err
	}
	fmt.Printf("source %s added; run `crosspack update` to sync its snapshot\n", src.Name)
	return nil
}

func runRegistryList(cmd *cobra.Command, args []string) error {
	store, layout, err := registryStore()
	if err != nil {
		return err
	}

	sources, err := store.List()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Println("no sources configured")
		return nil
	}

	for _, s := range sources {
		state := registry.ReadSnapshotState(layout.SourceCacheDir(s.Name))
		status := "not-synced"
		if state.Ready {
			status = "ready snapshot=" + state.SnapshotID
		} else if state.Present {
			status = "error: " + state.Reason
		}
		fmt.Printf("%s priority=%d kind=%s enabled=%t %s\n", s.Name, s.Priority, s.Kind, s.IsEnabled(), status)
		if s.Description != "" {
			fmt.Printf("  description: %s\n", s.Description)
		}
	}
	return nil
}

func runRegistryRemove(cmd *cobra.Command, args []string) error {
	store, layout, err := registryStore()
	if err != nil {
		return err
	}
	name := args[0]
	if err := store.Remove(name, registryRemovePurgeFlag, layout.SourceCacheDir(name)); err != nil {
		return err
	}
	fmt.Printf("source %s removed\n", name)
	return nil
}

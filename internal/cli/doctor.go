package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/crosspack/crosspack/internal/crypto"
	"github.com/crosspack/crosspack/internal/installer"
	"github.com/crosspack/crosspack/internal/registry"
	"github.com/crosspack/crosspack/internal/txn"
)

func GetDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the prefix for receipt, transaction, and registry-trust inconsistencies",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	prefix, err := resolvePrefix()
	if err != nil {
		return err
	}
	layout := installer.NewLayout(prefix)

	var issues int
	issue := func(code, detail string) {
		issues++
		fmt.Printf("doctor: issue %s %s\n", code, detail)
	}

	receipts, err := installer.LoadAllReceipts(layout.ReceiptsDir())
	if err != nil {
		return err
	}

	names := make([]string, 0, len(receipts))
	for n := range receipts {
		names = append(names, n)
	}
	sort.Strings(names)

	binOwners := make(map[string]string)
	completionOwners := make(map[string]string)
	for _, n := range names {
		r := receipts[n]
		for _, b := range r.ExposedBinaries {
			if other, seen := binOwners[b]; seen {
				issue("bin-owner-conflict", fmt.Sprintf("binary %q claimed by both %q and %q", b, other, n))
				continue
			}
			binOwners[b] = n
			if _, err := os.Lstat(installer.BinLinkPath(layout, b)); err != nil {
				issue("bin-missing", fmt.Sprintf("package %q: exposed binary %q not found on disk", n, b))
			}
		}
		for _, c := range r.ExposedCompletions {
			if other, seen := completionOwners[c]; seen {
				issue("completion-owner-conflict", fmt.Sprintf("completion %q claimed by both %q and %q", c, other, n))
				continue
			}
			completionOwners[c] = n
			if _, err := os.Stat(filepath.Join(layout.CompletionsRoot(), "packages", c)); err != nil {
				issue("completion-missing", fmt.Sprintf("package %q: exposed completion %q not found on disk", n, c))
			}
		}
	}

	if txid, ok, err := txn.ReadActiveMarker(layout.ActiveMarker()); err != nil {
		issue("active-marker-unreadable", err.Error())
	} else if ok {
		if _, err := txn.ReadMeta(layout.TransactionMeta(txid)); err != nil {
			issue("active-transaction-unresolvable", fmt.Sprintf("active marker points at %q: %v", txid, err))
		} else {
			issue("active-transaction-stale", fmt.Sprintf("transaction %q is still marked active; run `repair` or `rollback`", txid))
		}
	}

	store := registry.NewStore(layout.SourcesTOML())
	sources, err := store.List()
	if err != nil {
		return err
	}
	for _, s := range sources {
		cacheDir := layout.SourceCacheDir(s.Name)
		state := registry.ReadSnapshotState(cacheDir)
		if !state.Ready {
			continue
		}
		pubPath := filepath.Join(cacheDir, "registry.pub")
		fp, err := crypto.KeyFingerprint(pubPath)
		if err != nil {
			issue("source-key-unreadable", fmt.Sprintf("source %q: %v", s.Name, err))
			continue
		}
		if fp != s.FingerprintSHA256 {
			issue("source-key-fingerprint-mismatch", fmt.Sprintf("source %q: cached key no longer matches sources.toml", s.Name))
		}
	}

	if issues == 0 {
		fmt.Println("doctor: ok")
	}
	return nil
}

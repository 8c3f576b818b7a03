package orchestrator

import "github.com/crosspack/crosspack/internal/installer"

// binOwner answers installer.ExposeBinaries' ownership preflight by
// scanning every receipt on disk. It is re-derived on each call rather
// than cached, since within one multi-package plan an earlier package's
// receipt step may already have landed on disk by the time a later
// package's exposure step runs.
func binOwner(layout *installer.Layout) installer.Owner {
	return func(name string) (string, bool) {
		receipts, err := installer.LoadAllReceipts(layout.ReceiptsDir())
		if err != nil {
			return "", false
		}
		for pkgName, r := range receipts {
			for _, b := range r.ExposedBinaries {
				if b == name {
					return pkgName, true
				}
			}
		}
		return "", false
	}
}

func completionOwner(layout *installer.Layout) installer.CompletionOwner {
	return func(shell, name string) (string, bool) {
		key := shell + "/" + name
		receipts, err := installer.LoadAllReceipts(layout.ReceiptsDir())
		if err != nil {
			return "", false
		}
		for pkgName, r := range receipts {
			for _, c := range r.ExposedCompletions {
				if c == key {
					return pkgName, true
				}
			}
		}
		return "", false
	}
}

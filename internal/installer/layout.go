// Package installer owns every mutation of the on-disk prefix: staging,
// extraction, binary/completion exposure, receipts, pins, and the
// uninstall graph.
package installer

import (
	"path/filepath"
	"strconv"
)

// Layout is the single authoritative source of every path under a
// prefix. No other package concatenates prefix-relative paths by hand.
type Layout struct {
	Prefix string
}

func NewLayout(prefix string) *Layout {
	return &Layout{Prefix: prefix}
}

func (l *Layout) PkgDir(name, version string) string {
	return filepath.Join(l.Prefix, "pkgs", name, version)
}

func (l *Layout) BinDir() string {
	return filepath.Join(l.Prefix, "bin")
}

func (l *Layout) CacheArtifactPath(name, version, target, ext string) string {
	return filepath.Join(l.Prefix, "cache", "artifacts", name, version, target, "artifact."+ext)
}

func (l *Layout) CacheArtifactsRoot() string {
	return filepath.Join(l.Prefix, "cache", "artifacts")
}

func (l *Layout) CompletionsRoot() string {
	return filepath.Join(l.Prefix, "share", "completions")
}

func (l *Layout) CompletionsDir(shell string) string {
	return filepath.Join(l.Prefix, "share", "completions", "packages", shell)
}

func (l *Layout) ReceiptPath(name string) string {
	return filepath.Join(l.Prefix, "state", "installed", name+".receipt")
}

func (l *Layout) ReceiptsDir() string {
	return filepath.Join(l.Prefix, "state", "installed")
}

func (l *Layout) PinPath(name string) string {
	return filepath.Join(l.Prefix, "state", "pins", name+".pin")
}

func (l *Layout) PinsDir() string {
	return filepath.Join(l.Prefix, "state", "pins")
}

func (l *Layout) SourcesTOML() string {
	return filepath.Join(l.Prefix, "state", "registries", "sources.toml")
}

func (l *Layout) SourceCacheDir(name string) string {
	return filepath.Join(l.Prefix, "state", "registries", "cache", name)
}

func (l *Layout) TransactionsDir() string {
	return filepath.Join(l.Prefix, "state", "transactions")
}

func (l *Layout) ActiveMarker() string {
	return filepath.Join(l.Prefix, "state", "transactions", "active")
}

func (l *Layout) TransactionMeta(txid string) string {
	return filepath.Join(l.Prefix, "state", "transactions", txid+".json")
}

func (l *Layout) TransactionJournal(txid string) string {
	return filepath.Join(l.Prefix, "state", "transactions", txid+".journal")
}

func (l *Layout) TransactionStaging(txid string) string {
	return filepath.Join(l.Prefix, "state", "transactions", "staging", txid)
}

func (l *Layout) TmpRoot(pid int, ts int64) string {
	name := filepath.Base(l.Prefix) + "-" + strconv.Itoa(pid) + "-" + strconv.FormatInt(ts, 10)
	return filepath.Join(l.Prefix, "state", "tmp", name)
}

//go:build linux

package orchestrator

import "golang.org/x/sys/unix"

// muslLoaderCandidates are well-known musl dynamic loader paths across
// the architectures crosspack targets; their presence (and the absence
// of a glibc loader) identifies an Alpine-style musl host.
var muslLoaderCandidates = []string{
	"/lib/ld-musl-x86_64.so.1",
	"/lib/ld-musl-aarch64.so.1",
	"/lib/ld-musl-armhf.so.1",
	"/lib/ld-musl-i386.so.1",
}

var glibcLoaderCandidates = []string{
	"/lib64/ld-linux-x86-64.so.2",
	"/lib/ld-linux-aarch64.so.1",
	"/lib/ld-linux.so.2",
}

// linuxLibc probes well-known loader paths with unix.Access rather than
// os.Stat, confirming the loader is actually executable rather than
// merely present (a stray unreadable file at the path would otherwise
// misclassify the host).
func linuxLibc() string {
	for _, p := range glibcLoaderCandidates {
		if unix.Access(p, unix.X_OK) == nil {
			return "gnu"
		}
	}
	for _, p := range muslLoaderCandidates {
		if unix.Access(p, unix.X_OK) == nil {
			return "musl"
		}
	}
	return "gnu"
}

package orchestrator

import (
	"runtime"
	"strings"
	"testing"
)

func TestGoArchToTriple_KnownArches(t *testing.T) {
	cases := map[string]string{
		"amd64": "x86_64",
		"arm64": "aarch64",
		"386":   "i686",
		"arm":   "armv7",
	}
	for arch, want := range cases {
		if got := goArchToTriple(arch); got != want {
			t.Errorf("goArchToTriple(%q) = %q, want %q", arch, got, want)
		}
	}
}

func TestGoArchToTriple_UnknownArchPassesThrough(t *testing.T) {
	if got := goArchToTriple("riscv64"); got != "riscv64" {
		t.Errorf("got %q, want pass-through", got)
	}
}

// HostTarget's libc detection depends on which dynamic loader paths
// exist on the machine running the test, so this only checks the shape
// every branch produces rather than asserting gnu vs musl.
func TestHostTarget_Shape(t *testing.T) {
	got := HostTarget()
	if !strings.Contains(got, goArchToTriple(runtime.GOARCH)) {
		t.Errorf("HostTarget() = %q, missing arch component", got)
	}
	switch runtime.GOOS {
	case "linux":
		if !strings.HasSuffix(got, "-gnu") && !strings.HasSuffix(got, "-musl") {
			t.Errorf("HostTarget() = %q, want a -gnu or -musl suffix on linux", got)
		}
	case "darwin":
		if !strings.HasSuffix(got, "-apple-darwin") {
			t.Errorf("HostTarget() = %q, want -apple-darwin suffix", got)
		}
	case "windows":
		if !strings.HasSuffix(got, "-pc-windows-msvc") {
			t.Errorf("HostTarget() = %q, want -pc-windows-msvc suffix", got)
		}
	}
}

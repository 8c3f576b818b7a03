package installer

import (
	"path/filepath"
	"testing"
)

func TestLayout_PathDerivation(t *testing.T) {
	l := NewLayout("/home/user/.crosspack")

	cases := []struct {
		got, want string
	}{
		{l.PkgDir("ripgrep", "14.0.0"), filepath.Join("/home/user/.crosspack", "pkgs", "ripgrep", "14.0.0")},
		{l.BinDir(), filepath.Join("/home/user/.crosspack", "bin")},
		{l.ReceiptPath("ripgrep"), filepath.Join("/home/user/.crosspack", "state", "installed", "ripgrep.receipt")},
		{l.PinPath("ripgrep"), filepath.Join("/home/user/.crosspack", "state", "pins", "ripgrep.pin")},
		{l.ActiveMarker(), filepath.Join("/home/user/.crosspack", "state", "transactions", "active")},
		{l.CompletionsDir("zsh"), filepath.Join("/home/user/.crosspack", "share", "completions", "packages", "zsh")},
	}

	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %q, want %q", c.got, c.want)
		}
	}
}

func TestLayout_TmpRootIsUnique(t *testing.T) {
	l := NewLayout("/home/user/.crosspack")
	a := l.TmpRoot(100, 1700000000)
	b := l.TmpRoot(100, 1700000001)
	if a == b {
		t.Errorf("expected distinct tmp roots for distinct timestamps")
	}
}

package installer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReceipt_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ripgrep.receipt")

	r := Receipt{
		Name:               "ripgrep",
		Version:            "14.0.0",
		Target:             "x86_64-unknown-linux-gnu",
		ArtifactURL:        "https://example.com/ripgrep.tar.gz",
		ArtifactSHA256:     "deadbeef",
		CachePath:          "/prefix/cache/artifacts/ripgrep/14.0.0/x86_64-unknown-linux-gnu/artifact.tar.gz",
		ExposedBinaries:    []string{"rg"},
		ExposedCompletions: []string{"zsh/_rg"},
		Dependencies:       []string{"pcre2@10.42.0"},
		InstallReason:      ReasonRoot,
		InstallStatus:      "installed",
		InstalledAtUnix:    1700000000,
		SnapshotID:         "git:abc1234567890123",
	}

	if err := WriteReceipt(path, r); err != nil {
		t.Fatalf("WriteReceipt failed: %v", err)
	}

	got, err := ReadReceipt(path)
	if err != nil {
		t.Fatalf("ReadReceipt failed: %v", err)
	}

	if got.Name != r.Name || got.Version != r.Version || got.Target != r.Target {
		t.Errorf("core fields mismatch: %+v", got)
	}
	if len(got.ExposedBinaries) != 1 || got.ExposedBinaries[0] != "rg" {
		t.Errorf("exposed_bin mismatch: %v", got.ExposedBinaries)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0] != "pcre2@10.42.0" {
		t.Errorf("dependency mismatch: %v", got.Dependencies)
	}
	if got.InstallReason != ReasonRoot {
		t.Errorf("install_reason mismatch: %v", got.InstallReason)
	}
	if got.SnapshotID != "git:abc1234567890123" {
		t.Errorf("snapshot_id mismatch: %v", got.SnapshotID)
	}
}

func TestReceipt_MissingOptionalFieldsDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fd.receipt")
	body := "name=fd\nversion=9.0.0\ninstalled_at_unix=1700000000\n"
	writeRaw(t, path, body)

	r, err := ReadReceipt(path)
	if err != nil {
		t.Fatalf("ReadReceipt failed: %v", err)
	}
	if r.InstallReason != ReasonRoot {
		t.Errorf("expected default install_reason=root, got %v", r.InstallReason)
	}
	if r.InstallStatus != "installed" {
		t.Errorf("expected default install_status=installed, got %v", r.InstallStatus)
	}
}

func TestReceipt_MissingInstalledAtIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fd.receipt")
	writeRaw(t, path, "name=fd\nversion=9.0.0\n")

	if _, err := ReadReceipt(path); err == nil {
		t.Fatal("expected fatal error for missing installed_at_unix")
	}
}

func TestReceipt_MalformedLineIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fd.receipt")
	writeRaw(t, path, "name=fd\nversion=9.0.0\nthis is not a kv line\ninstalled_at_unix=1700000000\n")

	r, err := ReadReceipt(path)
	if err != nil {
		t.Fatalf("expected malformed non-kv line to be tolerated, got %v", err)
	}
	if r.Name != "fd" {
		t.Errorf("unexpected name: %v", r.Name)
	}
}

func TestReceipt_MalformedInstallReasonIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fd.receipt")
	writeRaw(t, path, "name=fd\nversion=9.0.0\ninstall_reason=bogus\ninstalled_at_unix=1700000000\n")

	if _, err := ReadReceipt(path); err == nil {
		t.Fatal("expected fatal error for malformed install_reason")
	}
}

func TestReceipt_UnknownKeysIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fd.receipt")
	writeRaw(t, path, "name=fd\nversion=9.0.0\nfuture_field=xyz\ninstalled_at_unix=1700000000\n")

	r, err := ReadReceipt(path)
	if err != nil {
		t.Fatalf("unknown keys should not be fatal: %v", err)
	}
	if r.Name != "fd" {
		t.Errorf("unexpected name: %v", r.Name)
	}
}

func writeRaw(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

package installer

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// InstallReason records why a package is present: requested directly by
// the user, or pulled in to satisfy a dependency.
type InstallReason string

const (
	ReasonRoot       InstallReason = "root"
	ReasonDependency InstallReason = "dependency"
)

// Receipt is the per-installed-package record persisted under
// state/installed/<name>.receipt.
type Receipt struct {
	Name               string
	Version            string
	Target             string
	ArtifactURL        string
	ArtifactSHA256     string
	CachePath          string
	ExposedBinaries    []string
	ExposedCompletions []string
	Dependencies       []string // name@version
	InstallReason      InstallReason
	InstallStatus      string
	InstalledAtUnix    int64
	SnapshotID         string
	SourceName         string
}

// WriteReceipt serializes r in line-based key=value format and writes it
// to path. The receipt write is the commit point for an install: it
// happens last.
func WriteReceipt(path string, r Receipt) error {
	var b strings.Builder
	fmt.Fprintf(&b, "name=%s\n", r.Name)
	fmt.Fprintf(&b, "version=%s\n", r.Version)
	fmt.Fprintf(&b, "target=%s\n", r.Target)
	fmt.Fprintf(&b, "artifact_url=%s\n", r.ArtifactURL)
	fmt.Fprintf(&b, "artifact_sha256=%s\n", r.ArtifactSHA256)
	fmt.Fprintf(&b, "cache_path=%s\n", r.CachePath)
	for _, bin := range r.ExposedBinaries {
		fmt.Fprintf(&b, "exposed_bin=%s\n", bin)
	}
	for _, c := range r.ExposedCompletions {
		fmt.Fprintf(&b, "exposed_completion=%s\n", c)
	}
	for _, d := range r.Dependencies {
		fmt.Fprintf(&b, "dependency=%s\n", d)
	}
	fmt.Fprintf(&b, "install_reason=%s\n", r.InstallReason)
	fmt.Fprintf(&b, "install_status=%s\n", r.InstallStatus)
	fmt.Fprintf(&b, "installed_at_unix=%d\n", r.InstalledAtUnix)
	if r.SnapshotID != "" {
		fmt.Fprintf(&b, "snapshot_id=%s\n", r.SnapshotID)
	}
	if r.SourceName != "" {
		fmt.Fprintf(&b, "source_name=%s\n", r.SourceName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("receipt: create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("receipt: write %s: %w", path, err)
	}
	return nil
}

// ReadReceipt parses a receipt file, tolerating missing optional fields
// and ignoring malformed non-k=v lines and unknown keys.
func ReadReceipt(path string) (*Receipt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("receipt: open %s: %w", path, err)
	}
	defer f.Close()

	r := &Receipt{
		InstallReason: ReasonRoot,
		InstallStatus: "installed",
	}
	haveInstalledAt := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		key := line[:idx]
		value := line[idx+1:]

		switch key {
		case "name":
			r.Name = value
		case "version":
			r.Version = value
		case "target":
			r.Target = value
		case "artifact_url":
			r.ArtifactURL = value
		case "artifact_sha256":
			r.ArtifactSHA256 = value
		case "cache_path":
			r.CachePath = value
		case "exposed_bin":
			r.ExposedBinaries = append(r.ExposedBinaries, value)
		case "exposed_completion":
			r.ExposedCompletions = append(r.ExposedCompletions, value)
		case "dependency":
			r.Dependencies = append(r.Dependencies, value)
		case "install_reason":
			switch InstallReason(value) {
			case ReasonRoot, ReasonDependency:
				r.InstallReason = InstallReason(value)
			default:
				return nil, fmt.Errorf("receipt %s: install_reason: invalid value %q", path, value)
			}
		case "install_status":
			r.InstallStatus = value
		case "installed_at_unix":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("receipt %s: installed_at_unix: invalid value %q", path, value)
			}
			r.InstalledAtUnix = ts
			haveInstalledAt = true
		case "snapshot_id":
			r.SnapshotID = value
		case "source_name":
			r.SourceName = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("receipt: read %s: %w", path, err)
	}

	if !haveInstalledAt {
		return nil, fmt.Errorf("receipt %s: installed_at_unix: missing", path)
	}

	return r, nil
}

// DependencyRef formats a dependency entry as name@version.
func DependencyRef(name, version string) string {
	return name + "@" + version
}

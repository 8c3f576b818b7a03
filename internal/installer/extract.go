package installer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/crosspack/crosspack/internal/manifest"
)

// Extract dispatches archiveFile to the extractor matching kind,
// unpacking into destDir. Extraction is extraction-only: no vendor
// installer or maintainer script is ever invoked.
func Extract(ctx context.Context, kind manifest.ArchiveKind, archiveFile, destDir string) error {
	if err := hostOSSupports(kind); err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("extract: create %s: %w", destDir, err)
	}

	switch kind {
	case manifest.ArchiveZip:
		return extractZip(ctx, archiveFile, destDir)
	case manifest.ArchiveTarGz, manifest.ArchiveTarZst:
		return extractTar(ctx, archiveFile, destDir)
	case manifest.ArchiveBin:
		return extractSingleFile(archiveFile, destDir, filepath.Base(archiveFile), true)
	case manifest.ArchiveAppImg:
		return extractSingleFile(archiveFile, destDir, filepath.Base(archiveFile), true)
	case manifest.ArchiveDMG:
		return extractDMG(ctx, archiveFile, destDir)
	case manifest.ArchiveMSI:
		return extractMSI(ctx, archiveFile, destDir)
	default:
		return fmt.Errorf("unsupported-archive-kind: %q", kind)
	}
}

// hostOSSupports rejects kinds whose extraction tooling does not exist
// on the running host.
func hostOSSupports(kind manifest.ArchiveKind) error {
	switch kind {
	case manifest.ArchiveDMG:
		if runtime.GOOS != "darwin" {
			return fmt.Errorf("host-os-mismatch: archive kind %q requires macOS, running on %s", kind, runtime.GOOS)
		}
	case manifest.ArchiveMSI:
		if runtime.GOOS != "windows" {
			return fmt.Errorf("host-os-mismatch: archive kind %q requires windows, running on %s", kind, runtime.GOOS)
		}
	}
	return nil
}

// extractZip prefers a platform-native unzip, falls back to the `unzip`
// binary, then to `tar -xf` which understands zip on most modern tar
// implementations. First available tool wins.
func extractZip(ctx context.Context, archiveFile, destDir string) error {
	candidates := zipToolCandidates()
	var lastErr error
	for _, c := range candidates {
		path, err := exec.LookPath(c.name)
		if err != nil {
			continue
		}
		args := append(c.args, archiveFile)
		cmd := exec.CommandContext(ctx, path, args...)
		cmd.Dir = destDir
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			lastErr = fmt.Errorf("extract: %s failed on %s: %w", c.name, archiveFile, err)
			continue
		}
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("extract: no zip extraction tool available (tried: %s)", zipToolNames())
}

type zipTool struct {
	name string
	args []string
}

func zipToolCandidates() []zipTool {
	if runtime.GOOS == "windows" {
		return []zipTool{
			{name: "tar", args: []string{"-xf"}},
		}
	}
	return []zipTool{
		{name: "unzip", args: []string{"-q"}},
		{name: "tar", args: []string{"-xf"}},
	}
}

func zipToolNames() string {
	names := make([]string, 0, 2)
	for _, c := range zipToolCandidates() {
		names = append(names, c.name)
	}
	return strings.Join(names, ", ")
}

// extractTar shells out to `tar -xf`, which auto-detects gzip/zstd
// compression from the archive's magic bytes on modern implementations.
func extractTar(ctx context.Context, archiveFile, destDir string) error {
	path, err := exec.LookPath("tar")
	if err != nil {
		return fmt.Errorf("extract: tar not found on PATH: %w", err)
	}
	cmd := exec.CommandContext(ctx, path, "-xf", archiveFile)
	cmd.Dir = destDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("extract: tar failed on %s: %w", archiveFile, err)
	}
	return nil
}

// extractSingleFile copies a single-payload artifact (bin/appimage) into
// destDir, preserving its base name and optionally marking it
// executable.
func extractSingleFile(archiveFile, destDir, name string, executable bool) error {
	data, err := os.ReadFile(archiveFile)
	if err != nil {
		return fmt.Errorf("extract: read %s: %w", archiveFile, err)
	}
	dest := filepath.Join(destDir, name)
	mode := os.FileMode(0644)
	if executable {
		mode = 0755
	}
	if err := os.WriteFile(dest, data, mode); err != nil {
		return fmt.Errorf("extract: write %s: %w", dest, err)
	}
	return nil
}

// extractDMG mounts, copies, and unmounts, with cleanup guaranteed on
// every exit path via defer.
func extractDMG(ctx context.Context, archiveFile, destDir string) error {
	mountPoint, err := os.MkdirTemp("", "crosspack-dmg-")
	if err != nil {
		return fmt.Errorf("extract: create mount scratch dir: %w", err)
	}
	defer os.RemoveAll(mountPoint)

	attach := exec.CommandContext(ctx, "hdiutil", "attach", "-nobrowse", "-mountpoint", mountPoint, archiveFile)
	attach.Stdout = os.Stdout
	attach.Stderr = os.Stderr
	if err := attach.Run(); err != nil {
		return fmt.Errorf("extract: hdiutil attach failed on %s: %w", archiveFile, err)
	}
	defer func() {
		detach := exec.Command("hdiutil", "detach", mountPoint, "-quiet")
		detach.Run()
	}()

	if err := copyTreeInto(mountPoint, destDir); err != nil {
		return fmt.Errorf("extract: copy from mounted dmg: %w", err)
	}
	return nil
}

// extractMSI invokes msiexec in administrative-install mode to unpack
// the payload into destDir without running any installer UI.
func extractMSI(ctx context.Context, archiveFile, destDir string) error {
	cmd := exec.CommandContext(ctx, "msiexec", "/a", archiveFile, "/qn", "TARGETDIR="+destDir)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("extract: msiexec failed on %s: %w", archiveFile, err)
	}
	return nil
}

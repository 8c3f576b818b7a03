package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/crosspack/crosspack/internal/crypto"
)

// Status is the per-source outcome of one update pipeline run.
type Status string

const (
	StatusUpdated   Status = "updated"
	StatusUpToDate  Status = "up-to-date"
	StatusFailed    Status = "failed"
)

// SnapshotState is the persistent per-source state read from
// snapshot.json: None (never updated), Ready, or Error.
type SnapshotState struct {
	Present    bool
	Ready      bool
	SnapshotID string
	Reason     string
}

// Snapshot is the on-disk snapshot.json document.
type Snapshot struct {
	Version       int    `json:"version" toml:"version"`
	Source        string `json:"source" toml:"source"`
	SnapshotID    string `json:"snapshot_id" toml:"snapshot_id"`
	UpdatedAtUnix int64  `json:"updated_at_unix" toml:"updated_at_unix"`
	ManifestCount int    `json:"manifest_count" toml:"manifest_count"`
	Status        string `json:"status" toml:"status"`
}

// ReadSnapshotState inspects <cacheDir>/snapshot.json and reports the
// source's current trust/readiness state.
func ReadSnapshotState(cacheDir string) SnapshotState {
	data, err := os.ReadFile(filepath.Join(cacheDir, "snapshot.json"))
	if err != nil {
		return SnapshotState{Present: false}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return SnapshotState{Present: true, Reason: "snapshot-missing: malformed snapshot.json"}
	}

	if snap.Status != "ready" {
		return SnapshotState{Present: true, Reason: fmt.Sprintf("metadata-invalid: status=%s", snap.Status)}
	}

	return SnapshotState{Present: true, Ready: true, SnapshotID: snap.SnapshotID}
}

// UpdateResult is the outcome of running the update pipeline for one
// source.
type UpdateResult struct {
	Source     string
	Status     Status
	SnapshotID string
	Err        error
}

// Update runs the sync → validate → fingerprint-check → derive-id →
// compare → swap pipeline for one source against its cache directory
// under cacheDir, using scratchDir as working space.
func Update(src Source, cacheDir, scratchDir string) UpdateResult {
	result := UpdateResult{Source: src.Name}

	staged := filepath.Join(scratchDir, "staged")
	if err := os.MkdirAll(filepath.Dir(staged), 0755); err != nil {
		result.Status, result.Err = StatusFailed, fmt.Errorf("sync-failed: %w", err)
		return result
	}

	var err error
	switch src.Kind {
	case KindGit:
		err = syncGit(src.Location, staged)
	case KindFilesystem:
		err = CopyTree(src.Location, staged)
	default:
		err = fmt.Errorf("config-invalid: unknown source kind %q", src.Kind)
	}
	if err != nil {
		result.Status, result.Err = StatusFailed, fmt.Errorf("sync-failed: %w", err)
		return result
	}

	pubPath := filepath.Join(staged, "registry.pub")
	indexPath := filepath.Join(staged, "index")
	if _, err := os.Stat(pubPath); err != nil {
		result.Status, result.Err = StatusFailed, fmt.Errorf("metadata-invalid: missing registry.pub")
		return result
	}
	if info, err := os.Stat(indexPath); err != nil || !info.IsDir() {
		result.Status, result.Err = StatusFailed, fmt.Errorf("metadata-invalid: missing index/ directory")
		return result
	}

	fp, err := crypto.KeyFingerprint(pubPath)
	if err != nil {
		result.Status, result.Err = StatusFailed, fmt.Errorf("metadata-invalid: %w", err)
		return result
	}
	if fp != src.FingerprintSHA256 {
		result.Status, result.Err = StatusFailed, fmt.Errorf("source-key-fingerprint-mismatch: computed=%s configured=%s", fp, src.FingerprintSHA256)
		return result
	}

	var snapshotID string
	switch src.Kind {
	case KindGit:
		head, err := gitHeadHash(staged)
		if err != nil {
			result.Status, result.Err = StatusFailed, err
			return result
		}
		snapshotID = "git:" + shortHex(head, 16)
	case KindFilesystem:
		fold, err := FoldFilesystemTree(staged)
		if err != nil {
			result.Status, result.Err = StatusFailed, err
			return result
		}
		snapshotID = "fs:" + fold
	}

	existing := ReadSnapshotState(cacheDir)
	if existing.Ready && existing.SnapshotID == snapshotID {
		result.Status, result.SnapshotID = StatusUpToDate, snapshotID
		return result
	}

	manifestCount, err := countManifests(indexPath)
	if err != nil {
		result.Status, result.Err = StatusFailed, err
		return result
	}

	if err := swapCacheDir(cacheDir, staged); err != nil {
		result.Status, result.Err = StatusFailed, fmt.Errorf("sync-failed: swap cache: %w", err)
		return result
	}

	snap := Snapshot{
		Version:       1,
		Source:        src.Name,
		SnapshotID:    snapshotID,
		UpdatedAtUnix: time.Now().Unix(),
		ManifestCount: manifestCount,
		Status:        "ready",
	}
	if err := writeSnapshotJSON(cacheDir, snap); err != nil {
		result.Status, result.Err = StatusFailed, err
		return result
	}

	result.Status, result.SnapshotID = StatusUpdated, snapshotID
	return result
}

func syncGit(remote, dest string) error {
	_, err := git.PlainClone(dest, false, &git.CloneOptions{
		URL:           remote,
		Depth:         1,
		ReferenceName: plumbing.HEAD,
		SingleBranch:  true,
	})
	return err
}

func gitHeadHash(repoPath string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("sync-failed: open cloned repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("sync-failed: read HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

func countManifests(indexDir string) (int, error) {
	var count int
	err := filepath.Walk(indexDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(p) == ".toml" {
			count++
		}
		return nil
	})
	return count, err
}

// swapCacheDir atomically replaces cacheDir's contents with staged,
// keeping a backup sibling so a failed rename restores the prior cache.
func swapCacheDir(cacheDir, staged string) error {
	if err := os.MkdirAll(filepath.Dir(cacheDir), 0755); err != nil {
		return err
	}

	backup := cacheDir + ".bak"
	os.RemoveAll(backup)

	hadExisting := false
	if _, err := os.Stat(cacheDir); err == nil {
		hadExisting = true
		if err := os.Rename(cacheDir, backup); err != nil {
			return fmt.Errorf("back up existing cache: %w", err)
		}
	}

	if err := os.Rename(staged, cacheDir); err != nil {
		if hadExisting {
			os.Rename(backup, cacheDir)
		}
		return fmt.Errorf("swap staged cache into place: %w", err)
	}

	os.RemoveAll(backup)
	return nil
}

func writeSnapshotJSON(cacheDir string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot.json: %w", err)
	}
	tmp := filepath.Join(cacheDir, "snapshot.json.tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot.json: %w", err)
	}
	return os.Rename(tmp, filepath.Join(cacheDir, "snapshot.json"))
}

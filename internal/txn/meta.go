package txn

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteMeta atomically writes transaction metadata to path.
func WriteMeta(path string, m Meta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("transaction: marshal metadata: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("transaction: create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("transaction: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("transaction: rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

// ReadMeta loads transaction metadata from path.
func ReadMeta(path string) (*Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("transaction: read %s: %w", path, err)
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("transaction: journal-corrupt: malformed metadata %s: %w", path, err)
	}
	return &m, nil
}

// CreateActiveMarker atomically creates the active marker holding txid.
// It fails if another active marker already exists (lock-held), which
// is the sole process-global mutual-exclusion point.
func CreateActiveMarker(path, txid string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("transaction: create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("transaction: lock-held: %s already exists", path)
		}
		return fmt.Errorf("transaction: claim %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(txid); err != nil {
		return fmt.Errorf("transaction: write active marker %s: %w", path, err)
	}
	return nil
}

// ReadActiveMarker returns the txid held by the active marker, or ""
// with ok=false if no marker exists.
func ReadActiveMarker(path string) (txid string, ok bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("transaction: read active marker %s: %w", path, err)
	}
	return string(data), true, nil
}

// RemoveActiveMarker deletes the active marker. Removing an absent
// marker is not an error.
func RemoveActiveMarker(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("transaction: remove active marker %s: %w", path, err)
	}
	return nil
}

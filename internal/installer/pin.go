package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadPin returns the stored semver requirement for name, or "" if no
// pin exists or the pin file is empty (empty file is equivalent to
// absent per the pin data model).
func ReadPin(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("pin: read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WritePin stores requirement as the pin for a package at path.
func WritePin(path, requirement string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("pin: create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(requirement+"\n"), 0644); err != nil {
		return fmt.Errorf("pin: write %s: %w", path, err)
	}
	return nil
}

// RemovePin deletes the pin file at path. Removing an absent pin is not
// an error.
func RemovePin(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pin: remove %s: %w", path, err)
	}
	return nil
}

// LoadPins reads every *.pin file under dir into a name->requirement
// map, skipping empty pins.
func LoadPins(dir string) (map[string]string, error) {
	pins := make(map[string]string)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return pins, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pin: list %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pin") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".pin")
		req, err := ReadPin(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if req != "" {
			pins[name] = req
		}
	}
	return pins, nil
}

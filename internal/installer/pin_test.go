package installer

import (
	"path/filepath"
	"testing"
)

func TestPin_WriteReadRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.pin")

	if err := WritePin(path, "1.0.0"); err != nil {
		t.Fatalf("WritePin failed: %v", err)
	}
	req, err := ReadPin(path)
	if err != nil {
		t.Fatalf("ReadPin failed: %v", err)
	}
	if req != "1.0.0" {
		t.Errorf("expected 1.0.0, got %q", req)
	}

	if err := RemovePin(path); err != nil {
		t.Fatalf("RemovePin failed: %v", err)
	}
	req, err = ReadPin(path)
	if err != nil {
		t.Fatalf("ReadPin after remove failed: %v", err)
	}
	if req != "" {
		t.Errorf("expected empty pin after removal, got %q", req)
	}
}

func TestPin_MissingIsAbsent(t *testing.T) {
	dir := t.TempDir()
	req, err := ReadPin(filepath.Join(dir, "nonexistent.pin"))
	if err != nil {
		t.Fatalf("ReadPin failed: %v", err)
	}
	if req != "" {
		t.Errorf("expected absent pin to read as empty, got %q", req)
	}
}

func TestLoadPins_SkipsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	if err := WritePin(filepath.Join(dir, "a.pin"), "^1"); err != nil {
		t.Fatalf("WritePin: %v", err)
	}
	if err := WritePin(filepath.Join(dir, "b.pin"), ""); err != nil {
		t.Fatalf("WritePin: %v", err)
	}

	pins, err := LoadPins(dir)
	if err != nil {
		t.Fatalf("LoadPins failed: %v", err)
	}
	if pins["a"] != "^1" {
		t.Errorf("expected a=^1, got %q", pins["a"])
	}
	if _, ok := pins["b"]; ok {
		t.Errorf("expected empty pin for b to be absent, got present")
	}
}

package resolver

import (
	"strings"
	"testing"

	"github.com/crosspack/crosspack/internal/manifest"
)

type fakeBackend struct {
	versions map[string][]*manifest.Manifest
}

func (f *fakeBackend) PackageVersions(name string) ([]*manifest.Manifest, error) {
	v, ok := f.versions[name]
	if !ok {
		return nil, &notFoundError{name: name}
	}
	return v, nil
}

type notFoundError struct{ name string }

func (e *notFoundError) Error() string { return "package '" + e.name + "' was not found" }

func m(name, version string, deps map[string]string) *manifest.Manifest {
	return &manifest.Manifest{Name: name, Version: version, Dependencies: deps}
}

func TestResolve_Simple(t *testing.T) {
	backend := &fakeBackend{versions: map[string][]*manifest.Manifest{
		"a": {m("a", "1.0.0", nil)},
	}}

	r := New(backend, nil)
	selections, err := r.Resolve([]Root{{Name: "a"}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(selections) != 1 || selections[0].Version.String() != "1.0.0" {
		t.Errorf("unexpected selections: %+v", selections)
	}
}

func TestResolve_BacktrackingWithPin(t *testing.T) {
	backend := &fakeBackend{versions: map[string][]*manifest.Manifest{
		"a": {m("a", "1.0.0", map[string]string{"b": "^1"})},
		"b": {m("b", "1.0.0", nil), m("b", "1.1.0", nil)},
	}}

	r := New(backend, map[string]string{"b": "1.0.0"})
	selections, err := r.Resolve([]Root{{Name: "a"}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	byName := map[string]string{}
	for _, s := range selections {
		byName[s.Name] = s.Version.String()
	}
	if byName["b"] != "1.0.0" {
		t.Errorf("expected b=1.0.0 with pin, got %s", byName["b"])
	}

	// without the pin, b=1.1.0 should be preferred (highest compatible)
	r2 := New(backend, nil)
	selections2, err := r2.Resolve([]Root{{Name: "a"}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	byName2 := map[string]string{}
	for _, s := range selections2 {
		byName2[s.Name] = s.Version.String()
	}
	if byName2["b"] != "1.1.0" {
		t.Errorf("expected b=1.1.0 without pin, got %s", byName2["b"])
	}
}

func TestResolve_CycleDiagnostic(t *testing.T) {
	backend := &fakeBackend{versions: map[string][]*manifest.Manifest{
		"x": {m("x", "1.0.0", map[string]string{"y": ""})},
		"y": {m("y", "1.0.0", map[string]string{"x": ""})},
	}}

	r := New(backend, nil)
	_, err := r.Resolve([]Root{{Name: "x"}})
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !strings.Contains(err.Error(), "dependency cycle detected: x,y") {
		t.Errorf("expected cycle diagnostic naming x,y, got: %v", err)
	}
}

func TestResolve_PackageNotFound(t *testing.T) {
	backend := &fakeBackend{versions: map[string][]*manifest.Manifest{}}
	r := New(backend, nil)
	_, err := r.Resolve([]Root{{Name: "missing"}})
	if err == nil {
		t.Fatal("expected error for missing package")
	}
}

func TestResolve_NoMatchingVersion(t *testing.T) {
	backend := &fakeBackend{versions: map[string][]*manifest.Manifest{
		"a": {m("a", "1.0.0", nil)},
	}}
	r := New(backend, nil)
	_, err := r.Resolve([]Root{{Name: "a", Constraint: "^2"}})
	if err == nil {
		t.Fatal("expected no-matching-version error")
	}
	if !strings.Contains(err.Error(), "no matching version for a") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolve_PinConflict(t *testing.T) {
	backend := &fakeBackend{versions: map[string][]*manifest.Manifest{
		"a": {m("a", "1.0.0", map[string]string{"b": "^1"})},
		"b": {m("b", "2.0.0", nil)},
	}}
	r := New(backend, map[string]string{"b": "^1"})
	_, err := r.Resolve([]Root{{Name: "a"}})
	if err == nil {
		t.Fatal("expected resolution failure from pin conflict")
	}
}

func TestResolve_Deterministic(t *testing.T) {
	backend := &fakeBackend{versions: map[string][]*manifest.Manifest{
		"a": {m("a", "1.0.0", map[string]string{"b": "", "c": ""})},
		"b": {m("b", "1.0.0", nil)},
		"c": {m("c", "1.0.0", nil)},
	}}

	run := func() []string {
		r := New(backend, nil)
		selections, err := r.Resolve([]Root{{Name: "a"}})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		names := make([]string, len(selections))
		for i, s := range selections {
			names[i] = s.Name
		}
		return names
	}

	first := run()
	second := run()
	if strings.Join(first, ",") != strings.Join(second, ",") {
		t.Errorf("resolution is not deterministic: %v vs %v", first, second)
	}
}

func TestTopoOrder_DependencyFirst(t *testing.T) {
	selections := []Selection{
		{Name: "a", Manifest: m("a", "1.0.0", map[string]string{"b": ""})},
		{Name: "b", Manifest: m("b", "1.0.0", nil)},
	}

	ordered, err := TopoOrder(selections)
	if err != nil {
		t.Fatalf("TopoOrder failed: %v", err)
	}
	if len(ordered) != 2 || ordered[0].Name != "b" || ordered[1].Name != "a" {
		t.Errorf("expected [b, a], got %+v", ordered)
	}
}

func TestTopoOrder_CycleDetected(t *testing.T) {
	selections := []Selection{
		{Name: "x", Manifest: m("x", "1.0.0", map[string]string{"y": ""})},
		{Name: "y", Manifest: m("y", "1.0.0", map[string]string{"x": ""})},
	}

	_, err := TopoOrder(selections)
	if err == nil {
		t.Fatal("expected cycle error")
	}
}

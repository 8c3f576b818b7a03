package orchestrator

import (
	"testing"

	"github.com/crosspack/crosspack/internal/installer"
	"github.com/crosspack/crosspack/internal/resolver"
)

func testOrchestrator(t *testing.T, backend *fakeBackend) (*Orchestrator, *installer.Layout) {
	t.Helper()
	layout := installer.NewLayout(t.TempDir())
	return New(layout, backend, nil), layout
}

func TestResolvePlan_FreshRootHasNoPriorReceipt(t *testing.T) {
	backend := newFakeBackend()
	o, layout := testOrchestrator(t, backend)
	backend.add(binManifest(t, layout, "jq", "1.7.1", HostTarget(), nil, "jq", []byte("jq-binary")))

	planned, err := o.resolvePlan([]resolver.Root{{Name: "jq"}})
	if err != nil {
		t.Fatalf("resolvePlan: %v", err)
	}
	if len(planned) != 1 {
		t.Fatalf("got %d planned packages, want 1", len(planned))
	}
	if planned[0].PriorReceipt != nil {
		t.Fatalf("expected nil prior receipt, got %+v", planned[0].PriorReceipt)
	}
	if planned[0].Reason != installer.ReasonRoot {
		t.Fatalf("got reason %q, want root", planned[0].Reason)
	}
}

func TestResolvePlan_DependencyKeepsDependencyReason(t *testing.T) {
	backend := newFakeBackend()
	o, layout := testOrchestrator(t, backend)
	target := HostTarget()
	backend.add(binManifest(t, layout, "libfoo", "2.0.0", target, nil, "libfoo", []byte("libfoo")))
	backend.add(binManifest(t, layout, "app", "1.0.0", target, map[string]string{"libfoo": "^2.0.0"}, "app", []byte("app")))

	planned, err := o.resolvePlan([]resolver.Root{{Name: "app"}})
	if err != nil {
		t.Fatalf("resolvePlan: %v", err)
	}

	byName := map[string]PlannedPackage{}
	for _, p := range planned {
		byName[p.Selection.Name] = p
	}
	if byName["libfoo"].Reason != installer.ReasonDependency {
		t.Fatalf("got reason %q for libfoo, want dependency", byName["libfoo"].Reason)
	}
	if byName["app"].Reason != installer.ReasonRoot {
		t.Fatalf("got reason %q for app, want root", byName["app"].Reason)
	}
}

func TestResolvePlan_PromotesDependencyToRootWhenRequestedDirectly(t *testing.T) {
	backend := newFakeBackend()
	o, layout := testOrchestrator(t, backend)
	target := HostTarget()
	backend.add(binManifest(t, layout, "libfoo", "2.0.0", target, nil, "libfoo", []byte("libfoo")))

	if err := installer.WriteReceipt(layout.ReceiptPath("libfoo"), installer.Receipt{
		Name: "libfoo", Version: "2.0.0", Target: target,
		InstallReason: installer.ReasonDependency, InstallStatus: "installed",
	}); err != nil {
		t.Fatalf("seed receipt: %v", err)
	}

	planned, err := o.resolvePlan([]resolver.Root{{Name: "libfoo"}})
	if err != nil {
		t.Fatalf("resolvePlan: %v", err)
	}
	if len(planned) != 1 {
		t.Fatalf("got %d planned, want 1", len(planned))
	}
	if planned[0].Reason != installer.ReasonRoot {
		t.Fatalf("got reason %q, want root after explicit request", planned[0].Reason)
	}
	if planned[0].PriorReceipt == nil || planned[0].PriorReceipt.InstallReason != installer.ReasonDependency {
		t.Fatalf("expected prior receipt to retain its original dependency reason, got %+v", planned[0].PriorReceipt)
	}
}

func TestResolvePlan_UnrelatedRootKeepsItsOwnPriorReason(t *testing.T) {
	backend := newFakeBackend()
	o, layout := testOrchestrator(t, backend)
	target := HostTarget()
	backend.add(binManifest(t, layout, "bat", "0.24.0", target, nil, "bat", []byte("bat")))

	if err := installer.WriteReceipt(layout.ReceiptPath("bat"), installer.Receipt{
		Name: "bat", Version: "0.24.0", Target: target,
		InstallReason: installer.ReasonRoot, InstallStatus: "installed",
	}); err != nil {
		t.Fatalf("seed receipt: %v", err)
	}

	planned, err := o.resolvePlan([]resolver.Root{{Name: "bat"}})
	if err != nil {
		t.Fatalf("resolvePlan: %v", err)
	}
	if planned[0].Reason != installer.ReasonRoot {
		t.Fatalf("got reason %q, want root", planned[0].Reason)
	}
	if planned[0].PriorReceipt == nil || planned[0].PriorReceipt.Version != "0.24.0" {
		t.Fatalf("expected prior receipt carried forward, got %+v", planned[0].PriorReceipt)
	}
}

func TestResolvePlan_HonorsPin(t *testing.T) {
	backend := newFakeBackend()
	o, layout := testOrchestrator(t, backend)
	target := HostTarget()
	backend.add(binManifest(t, layout, "jq", "1.6.0", target, nil, "jq", []byte("jq-old")))
	backend.add(binManifest(t, layout, "jq", "1.7.1", target, nil, "jq", []byte("jq-new")))

	if err := installer.WritePin(layout.PinPath("jq"), "1.6.0"); err != nil {
		t.Fatalf("seed pin: %v", err)
	}

	planned, err := o.resolvePlan([]resolver.Root{{Name: "jq"}})
	if err != nil {
		t.Fatalf("resolvePlan: %v", err)
	}
	if planned[0].Version() != "1.6.0" {
		t.Fatalf("got version %s, want pinned 1.6.0", planned[0].Version())
	}
}

// Package cli wires the cobra command tree for the crosspack binary:
// one file per subcommand, a shared prefix/backend resolution helper in
// this file, and root.go for persistent flags and observability wiring.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/crosspack/crosspack/internal/installer"
	"github.com/crosspack/crosspack/internal/observability"
	otelobs "github.com/crosspack/crosspack/internal/observability/otel"
	"github.com/crosspack/crosspack/internal/observability/receipt"
	"github.com/crosspack/crosspack/internal/orchestrator"
	"github.com/crosspack/crosspack/internal/registry"
	"github.com/crosspack/crosspack/internal/registryindex"
)

var (
	prefixFlag       string
	registryRootFlag string
)

// resolvePrefix returns the configured --prefix, or ~/.crosspack if unset.
func resolvePrefix() (string, error) {
	if prefixFlag != "" {
		return prefixFlag, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return home + "/.crosspack", nil
}

// newOrchestrator builds the layout, metadata backend, and snapshot
// resolver for one command invocation. A --registry-root override bypasses
// sources.toml entirely and never binds a snapshot id, matching a bare
// index with no wrapping configured source.
func newOrchestrator() (*orchestrator.Orchestrator, error) {
	prefix, err := resolvePrefix()
	if err != nil {
		return nil, err
	}
	layout := installer.NewLayout(prefix)

	if registryRootFlag != "" {
		idx := registryindex.NewIndex(registryRootFlag)
		return orchestrator.New(layout, idx, nil), nil
	}

	store := registry.NewStore(layout.SourcesTOML())
	sources, err := store.List()
	if err != nil {
		return nil, err
	}

	configured, err := registryindex.NewConfigured(sources, layout.SourceCacheDir)
	if err != nil {
		return nil, err
	}

	o := orchestrator.New(layout, configured, configured.SnapshotIDFor)
	o.SourceNameOf = configured.SourceNameFor
	return o, nil
}

// parseRootArg splits a "name[@constraint]" CLI argument into a
// resolver.Root, the shape every package-name positional argument across
// install/upgrade/pin uses.
func parseRootArg(arg string) (name, constraint string) {
	if idx := strings.IndexByte(arg, '@'); idx >= 0 {
		return arg[:idx], arg[idx+1:]
	}
	return arg, ""
}

func printLines(lines []string) {
	for _, l := range lines {
		fmt.Println(l)
	}
}

// startSpan opens one tracing span for a top-level orchestrator operation
// when OTel is enabled, and returns a no-op end() otherwise.
func startSpan(ctx context.Context, operation string) (context.Context, func()) {
	h := otelobs.From(ctx)
	if h == nil {
		return ctx, func() {}
	}
	spanCtx, span := h.Tracer.Start(ctx, "crosspack."+operation)
	return spanCtx, func() { span.End() }
}

// writeAuditReceipt records one CLI invocation's outcome when --receipt is
// set; a no-op otherwise.
func writeAuditReceipt(ctx context.Context, command string, args []string, start time.Time, results []orchestrator.LifecycleResult, opErr error) {
	rw := receipt.From(ctx)
	if rw == nil {
		return
	}

	r := receipt.Receipt{
		SchemaVersion: receipt.SchemaVersion,
		OpID:          observability.OpID(ctx),
		TsStart:       start.UTC().Format(time.RFC3339),
		TsEnd:         time.Now().UTC().Format(time.RFC3339),
		Command:       command,
		Args:          args,
	}
	if opErr != nil {
		r.Result = receipt.Result{Status: "fail", Error: opErr.Error()}
	} else {
		r.Result = receipt.Result{Status: "success"}
	}
	for _, res := range results {
		r.Packages = append(r.Packages, receipt.PackageOutcome{
			Name: res.Name, Version: res.Version, Action: res.Status,
		})
	}
	_ = rw.Write(r)
}

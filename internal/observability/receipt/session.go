package receipt

import (
	"context"
	"time"

	"github.com/crosspack/crosspack/internal/observability"
)

// MaxErrorLength is the maximum length for error strings in receipts.
const MaxErrorLength = 2048

// Session tracks one CLI command execution from start to Finish.
type Session struct {
	ctx     context.Context
	start   time.Time
	command string
	args    []string
}

// Start begins a new audit session.
func Start(ctx context.Context, cmd string, args []string) *Session {
	return &Session{
		ctx:     ctx,
		start:   time.Now(),
		command: cmd,
		args:    args,
	}
}

// Option configures a Receipt before it is written.
type Option func(*Receipt)

// WithTransaction records the transaction this operation ran under.
func WithTransaction(txid, operation, status, snapshotID string) Option {
	return func(r *Receipt) {
		r.Transaction = &TransactionInfo{
			TxID:       txid,
			Operation:  operation,
			Status:     status,
			SnapshotID: snapshotID,
		}
	}
}

// WithPackage appends one package outcome line.
func WithPackage(name, version, target, action string) Option {
	return func(r *Receipt) {
		r.Packages = append(r.Packages, PackageOutcome{
			Name:    name,
			Version: version,
			Target:  target,
			Action:  action,
		})
	}
}

// Finish writes the receipt if a writer is configured in the context.
func (s *Session) Finish(err error, opts ...Option) error {
	w := From(s.ctx)
	if w == nil {
		return nil
	}

	redactedArgs, wasRedacted := RedactArgs(s.args)

	r := Receipt{
		SchemaVersion: SchemaVersion,
		OpID:          observability.OpID(s.ctx),
		TsStart:       s.start.Format(time.RFC3339Nano),
		TsEnd:         time.Now().Format(time.RFC3339Nano),
		Command:       s.command,
		Args:          redactedArgs,
		ArgsRedacted:  wasRedacted,
	}

	if err != nil {
		r.Result = Result{Status: "fail", Error: truncateError(err.Error())}
	} else {
		r.Result = Result{Status: "success"}
	}

	for _, opt := range opts {
		opt(&r)
	}

	return w.Write(r)
}

func truncateError(s string) string {
	if len(s) <= MaxErrorLength {
		return s
	}
	return s[:MaxErrorLength-3] + "..."
}

package journal

import (
	"context"
	"time"
)

// =============================================================================
// Run Model
// =============================================================================

// Run outcomes. A run stays "running" until RecordOutcome closes it, so an
// interrupted process leaves a visible trace.
const (
	OutcomeRunning   = "running"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Run is one recorded bootstrap invocation.
type Run struct {
	ID          string
	Profile     string
	Environment string
	Phase       string
	Outcome     string
	Error       string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Duration    time.Duration
}

// =============================================================================
// Journal Interface
// =============================================================================

// Journal records the lifecycle of bootstrap runs. The pipeline treats it
// as advisory: recording failures are logged, never fatal.
type Journal interface {
	// RecordStart opens a run and returns its ID.
	RecordStart(ctx context.Context, profile, environment string) (string, error)

	// RecordPhase notes the phase the run has reached.
	RecordPhase(ctx context.Context, id, phase string) error

	// RecordOutcome closes the run with its final outcome and optional
	// error message.
	RecordOutcome(ctx context.Context, id, outcome, message string) error

	// ListRecent returns the most recent runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]Run, error)

	// Close releases the underlying storage.
	Close() error
}

// =============================================================================
// Nop Journal
// =============================================================================

// Nop is a Journal that records nothing, used when history is disabled.
type Nop struct{}

func (Nop) RecordStart(context.Context, string, string) (string, error) { return "", nil }

func (Nop) RecordPhase(context.Context, string, string) error { return nil }

func (Nop) RecordOutcome(context.Context, string, string, string) error { return nil }

func (Nop) ListRecent(context.Context, int) ([]Run, error) { return nil, nil }

func (Nop) Close() error { return nil }

// Package journal persists a history of bootstrap runs.
package journal

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when a run is not found.
	ErrNotFound = errors.New("run not found")

	// ErrConnectionFailed is returned when the database cannot be opened.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrMigrationFailed is returned when database migration fails.
	ErrMigrationFailed = errors.New("database migration failed")

	// ErrInvalidData is returned when a stored row cannot be decoded.
	ErrInvalidData = errors.New("invalid data format")
)

// JournalError wraps errors with additional context.
type JournalError struct {
	Op      string // Operation that failed (e.g., "RecordStart")
	RunID   string // Run ID if applicable
	Message string
	Err     error
}

func (e *JournalError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s run %s: %s", e.Op, e.RunID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *JournalError) Unwrap() error {
	return e.Err
}

// NewJournalError creates a new JournalError.
func NewJournalError(op, runID, message string, err error) *JournalError {
	return &JournalError{
		Op:      op,
		RunID:   runID,
		Message: message,
		Err:     err,
	}
}

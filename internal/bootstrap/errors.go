package bootstrap

// =============================================================================
// Exit Codes
// =============================================================================

// Process exit codes. Each fatal failure class gets its own code so wrapper
// scripts can tell a missing .env from a startup failure.
const (
	ExitSuccess   = 0
	ExitConfig    = 1
	ExitRepoSync  = 2
	ExitEnvFile   = 3
	ExitStartup   = 4
	ExitInterrupt = 5
)

// =============================================================================
// Errors
// =============================================================================

// Error is a fatal pipeline failure: the operation that failed, the exit
// code the process should return, and the underlying cause.
type Error struct {
	Op       string
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

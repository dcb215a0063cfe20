package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// List limits for ListRecent.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// =============================================================================
// SQLiteJournal
// =============================================================================

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sqlx.DB
}

// NewSQLiteJournal opens (and creates, if needed) the journal database at
// dsn and runs migrations. A relative path gets its parent directories
// created so first runs work out of the box.
func NewSQLiteJournal(dsn string) (*SQLiteJournal, error) {
	if err := ensureParentDir(dsn); err != nil {
		return nil, NewJournalError("NewSQLiteJournal", "", err.Error(), ErrConnectionFailed)
	}

	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewJournalError("NewSQLiteJournal", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewJournalError("NewSQLiteJournal", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewJournalError("NewSQLiteJournal", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteJournal{db: db}, nil
}

// ensureParentDir creates the directory a file DSN points into. In-memory
// and URI-style DSNs are left alone.
func ensureParentDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// =============================================================================
// Run Operations
// =============================================================================

// runRow represents a run row in the database.
type runRow struct {
	ID          string  `db:"id"`
	StartedAt   string  `db:"started_at"`
	FinishedAt  *string `db:"finished_at"`
	Profile     string  `db:"profile"`
	Environment string  `db:"environment"`
	Phase       string  `db:"phase"`
	Outcome     string  `db:"outcome"`
	Error       string  `db:"error_message"`
	DurationMS  int64   `db:"duration_ms"`
}

func (j *SQLiteJournal) RecordStart(ctx context.Context, profile, environment string) (string, error) {
	id := uuid.NewString()

	query := `
		INSERT INTO runs (
			id, started_at, profile, environment, phase, outcome, error_message, duration_ms
		) VALUES (
			:id, :started_at, :profile, :environment, :phase, :outcome, '', 0
		)`

	row := map[string]any{
		"id":          id,
		"started_at":  time.Now().UTC().Format(time.RFC3339Nano),
		"profile":     profile,
		"environment": environment,
		"phase":       "init",
		"outcome":     OutcomeRunning,
	}

	if _, err := j.db.NamedExecContext(ctx, query, row); err != nil {
		return "", NewJournalError("RecordStart", id, err.Error(), err)
	}
	return id, nil
}

func (j *SQLiteJournal) RecordPhase(ctx context.Context, id, phase string) error {
	query := `UPDATE runs SET phase = ? WHERE id = ?`

	result, err := j.db.ExecContext(ctx, query, phase, id)
	if err != nil {
		return NewJournalError("RecordPhase", id, err.Error(), err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return NewJournalError("RecordPhase", id, "run not found", ErrNotFound)
	}
	return nil
}

func (j *SQLiteJournal) RecordOutcome(ctx context.Context, id, outcome, message string) error {
	var row runRow
	if err := j.db.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewJournalError("RecordOutcome", id, "run not found", ErrNotFound)
		}
		return NewJournalError("RecordOutcome", id, err.Error(), err)
	}

	started, err := time.Parse(time.RFC3339Nano, row.StartedAt)
	if err != nil {
		return NewJournalError("RecordOutcome", id, "failed to parse started_at", ErrInvalidData)
	}

	finished := time.Now().UTC()

	query := `
		UPDATE runs SET
			outcome = :outcome,
			error_message = :error_message,
			finished_at = :finished_at,
			duration_ms = :duration_ms
		WHERE id = :id`

	update := map[string]any{
		"id":            id,
		"outcome":       outcome,
		"error_message": message,
		"finished_at":   finished.Format(time.RFC3339Nano),
		"duration_ms":   finished.Sub(started).Milliseconds(),
	}

	if _, err := j.db.NamedExecContext(ctx, query, update); err != nil {
		return NewJournalError("RecordOutcome", id, err.Error(), err)
	}
	return nil
}

func (j *SQLiteJournal) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `SELECT * FROM runs ORDER BY started_at DESC LIMIT ?`

	var rows []runRow
	if err := j.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, NewJournalError("ListRecent", "", err.Error(), err)
	}

	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		run, err := rowToRun(&row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

// rowToRun converts a database row to a Run.
func rowToRun(row *runRow) (*Run, error) {
	started, err := time.Parse(time.RFC3339Nano, row.StartedAt)
	if err != nil {
		return nil, NewJournalError("rowToRun", row.ID, "failed to parse started_at", ErrInvalidData)
	}

	var finished *time.Time
	if row.FinishedAt != nil && *row.FinishedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, *row.FinishedAt)
		if err != nil {
			return nil, NewJournalError("rowToRun", row.ID, "failed to parse finished_at", ErrInvalidData)
		}
		finished = &t
	}

	return &Run{
		ID:          row.ID,
		Profile:     row.Profile,
		Environment: row.Environment,
		Phase:       row.Phase,
		Outcome:     row.Outcome,
		Error:       row.Error,
		StartedAt:   started,
		FinishedAt:  finished,
		Duration:    time.Duration(row.DurationMS) * time.Millisecond,
	}, nil
}

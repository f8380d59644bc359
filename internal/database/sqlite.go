package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bt-restic/internal/bt"
	"bt-restic/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// timeLayout is how timestamps are stored. It sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteDatabase implements bt.Database on SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens the database at path and brings its schema up to
// date. path can be a file path or ":memory:".
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteDatabase{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
// An in-memory database is held on a single connection, since every new
// connection to ":memory:" would see an empty database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

func (s *SQLiteDatabase) CreateRun(run *bt.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (id, target, operation, status, started_at, finished_at,
			snapshot_id, selected_count, files_new, files_changed, bytes_added, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Target, string(run.Operation), string(run.Status),
		formatTime(run.StartedAt), nullTime(run.FinishedAt),
		run.SnapshotID, run.SelectedCount, run.FilesNew, run.FilesChanged, run.BytesAdded, run.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FinishRun(run *bt.Run) error {
	res, err := s.db.Exec(`
		UPDATE runs
		SET status = ?, finished_at = ?, snapshot_id = ?, selected_count = ?,
			files_new = ?, files_changed = ?, bytes_added = ?, error = ?
		WHERE id = ?`,
		string(run.Status), nullTime(run.FinishedAt), run.SnapshotID, run.SelectedCount,
		run.FilesNew, run.FilesChanged, run.BytesAdded, run.Error,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", bt.ErrRunNotFound, run.ID)
	}
	return nil
}

func (s *SQLiteDatabase) FindRun(id string) (*bt.Run, error) {
	row := s.db.QueryRow(selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding run: %w", err)
	}
	return run, nil
}

func (s *SQLiteDatabase) ListRuns(limit int) ([]*bt.Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.Query(selectRuns+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*bt.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Path returns the database file path, or "" for a wrapped connection.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.Check(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const selectRuns = `
	SELECT id, target, operation, status, started_at, finished_at,
		snapshot_id, selected_count, files_new, files_changed, bytes_added, error
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*bt.Run, error) {
	var (
		run        bt.Run
		operation  string
		status     string
		startedAt  string
		finishedAt sql.NullString
	)
	err := row.Scan(
		&run.ID, &run.Target, &operation, &status, &startedAt, &finishedAt,
		&run.SnapshotID, &run.SelectedCount, &run.FilesNew, &run.FilesChanged, &run.BytesAdded, &run.Error,
	)
	if err != nil {
		return nil, err
	}

	run.Operation = bt.Operation(operation)
	run.Status = bt.RunStatus(status)

	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if finishedAt.Valid {
		if run.FinishedAt, err = time.Parse(timeLayout, finishedAt.String); err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

// Compile-time check that SQLiteDatabase implements bt.Database interface
var _ bt.Database = (*SQLiteDatabase)(nil)

package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	for _, table := range []string{"runs", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestCheck_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	err := Check(db)
	if !errors.Is(err, ErrNeedsMigration) {
		t.Errorf("Check() error = %v, want ErrNeedsMigration", err)
	}
}

func TestCheck_AfterMigration(t *testing.T) {
	db := openTestDB(t)

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}
	if err := Check(db); err != nil {
		t.Errorf("Check() after migration returned error: %v", err)
	}
}

func TestUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := Up(db); err != nil {
		t.Fatalf("first Up() failed: %v", err)
	}
	if err := Up(db); err != nil {
		t.Errorf("second Up() failed: %v", err)
	}
	if err := Check(db); err != nil {
		t.Errorf("Check() after double migration returned error: %v", err)
	}
}

func TestLatestVersion(t *testing.T) {
	v, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if v != 1 {
		t.Errorf("LatestVersion() = %d, want 1", v)
	}
}

func TestSchema_RunConstraints(t *testing.T) {
	db := openTestDB(t)
	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	insert := `INSERT INTO runs (id, operation, status, started_at) VALUES (?, ?, ?, ?)`

	if _, err := db.Exec(insert, "run-1", "backup", "running", "2024-01-15T10:30:00Z"); err != nil {
		t.Fatalf("inserting valid run: %v", err)
	}

	tests := []struct {
		name string
		args []any
	}{
		{name: "duplicate id", args: []any{"run-1", "backup", "running", "2024-01-15T10:30:00Z"}},
		{name: "unknown operation", args: []any{"run-2", "restore", "running", "2024-01-15T10:30:00Z"}},
		{name: "unknown status", args: []any{"run-3", "backup", "paused", "2024-01-15T10:30:00Z"}},
		{name: "missing start", args: []any{"run-4", "backup", "running", nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.Exec(insert, tt.args...); err == nil {
				t.Error("expected constraint violation, insert succeeded")
			}
		})
	}
}

// openTestDB opens an in-memory SQLite database on a single connection.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

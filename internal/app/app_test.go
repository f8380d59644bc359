package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"bt-restic/internal/bt"
	"bt-restic/internal/config"
	"bt-restic/internal/target"
	"bt-restic/internal/testutil"
)

const summaryLine = `{"message_type":"summary","files_new":2,"files_changed":0,"data_added":512,"total_files_processed":2,"snapshot_id":"00ff00ff"}` + "\n"

// newTestApp builds an app over a temp tree:
//
//	home/
//	  notes.txt
//	  node_modules/dep.js
//	  src/main.go
func newTestApp(t *testing.T, fake *testutil.FakeRestic) (*BTApp, string) {
	t.Helper()

	base := testutil.TempRoot(t)
	home := filepath.Join(base, "home")
	testutil.MakeTree(t, home, "notes.txt", "node_modules/dep.js", "src/main.go")

	cfg := config.NewConfig("test-host", filepath.Join(base, "bt"))
	cfg.Database = config.DatabaseConfig{Type: "memory"}
	cfg.Restic.Repository = config.RepositoryConfig{Type: "local", Path: filepath.Join(base, "repo")}
	if fake != nil {
		cfg.Restic.Binary = fake.Binary
	}
	cfg.Targets = []config.TargetConfig{
		{Name: "home", Folders: []string{home}, Exclusions: []string{"node_modules"}, Tags: []string{"daily"}},
		{Name: "src", Folders: []string{filepath.Join(home, "src")}},
	}

	a, err := NewBTApp(cfg, Options{Console: &bytes.Buffer{}, ConsoleLevel: slog.LevelError})
	if err != nil {
		t.Fatalf("NewBTApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, home
}

func TestBTApp_Target(t *testing.T) {
	a, home := newTestApp(t, nil)

	tg, name, err := a.Target("")
	if err != nil {
		t.Fatalf("Target() error = %v", err)
	}
	if name != "home" || tg.Folders()[0] != home {
		t.Errorf("Target(\"\") = %v, %q", tg.Folders(), name)
	}

	if _, _, err := a.Target("missing"); err == nil {
		t.Error("Target(missing) expected error")
	}

	if got := a.TargetNames(); strings.Join(got, ",") != "home,src" {
		t.Errorf("TargetNames() = %v", got)
	}
}

func TestBTApp_Check(t *testing.T) {
	a, home := newTestApp(t, nil)

	tests := []struct {
		target string
		path   string
		want   target.Selection
	}{
		{target: "home", path: filepath.Join(home, "notes.txt"), want: target.Included},
		{target: "home", path: filepath.Join(home, "node_modules", "dep.js"), want: target.Excluded},
		{target: "src", path: home, want: target.Contains},
		{target: "src", path: filepath.Join(home, "notes.txt"), want: target.Irrelevant},
	}
	for _, tt := range tests {
		got, err := a.Check(tt.target, tt.path)
		if err != nil {
			t.Fatalf("Check(%s, %s) error = %v", tt.target, tt.path, err)
		}
		if got != tt.want {
			t.Errorf("Check(%s, %s) = %v, want %v", tt.target, tt.path, got, tt.want)
		}
	}
}

func TestBTApp_Stat(t *testing.T) {
	a, home := newTestApp(t, nil)

	file := filepath.Join(home, "notes.txt")
	n, err := a.Stat(file)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if n.Type != "file" || n.Path != file || n.Size != uint64(len("notes.txt")) {
		t.Errorf("Stat(%s) = %+v", file, n)
	}

	dir, err := a.Stat(filepath.Join(home, "src"))
	if err != nil || !dir.IsDir() {
		t.Errorf("Stat(src) = %+v, %v", dir, err)
	}

	if _, err := a.Stat(filepath.Join(home, "missing")); err == nil {
		t.Error("Stat(missing) expected error")
	}
}

func TestBTApp_SelectFiles(t *testing.T) {
	a, home := newTestApp(t, nil)

	sel, err := a.SelectFiles("home")
	if err != nil {
		t.Fatalf("SelectFiles() error = %v", err)
	}

	want := []string{
		home,
		filepath.Join(home, "notes.txt"),
		filepath.Join(home, "src"),
		filepath.Join(home, "src", "main.go"),
	}
	if got := sel.Files.Paths(); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("Paths() = %v, want %v", got, want)
	}
}

func TestBTApp_Backup(t *testing.T) {
	t.Setenv(PasswordEnv, "pw")
	fake := testutil.NewFakeRestic(t, summaryLine, "", 0)
	a, home := newTestApp(t, fake)

	summary, err := a.Backup(context.Background(), "home")
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if summary.SnapshotID != "00ff00ff" {
		t.Errorf("SnapshotID = %q", summary.SnapshotID)
	}

	args := strings.Join(fake.Args(t), " ")
	if !strings.Contains(args, "backup "+home+" --exclude **/node_modules --tag daily") {
		t.Errorf("restic args = %q", args)
	}
	if pw, _ := fake.Env(t, "RESTIC_PASSWORD"); pw != "pw" {
		t.Errorf("RESTIC_PASSWORD = %q", pw)
	}

	runs, err := a.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("History() = %d runs, want 1", len(runs))
	}
	r := runs[0]
	if r.Target != "home" || r.Status != bt.RunStatusSuccess || r.SnapshotID != "00ff00ff" || r.SelectedCount != 4 {
		t.Errorf("run = %+v", r)
	}
}

func TestBTApp_InitRepository_requiresPassword(t *testing.T) {
	t.Setenv(PasswordEnv, "")
	fake := testutil.NewFakeRestic(t, "", "", 0)
	a, _ := newTestApp(t, fake)

	err := a.InitRepository(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bt repo password") {
		t.Errorf("InitRepository() error = %v", err)
	}
	if fake.Args(t) != nil {
		t.Error("restic ran without a password")
	}
}

func TestBTApp_SetPasswordThenInit(t *testing.T) {
	t.Setenv(PasswordEnv, "")
	fake := testutil.NewFakeRestic(t, "created restic repository\n", "", 0)
	a, _ := newTestApp(t, fake)

	if err := a.SetPassword("stored-pw"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	if err := a.InitRepository(context.Background()); err != nil {
		t.Fatalf("InitRepository() error = %v", err)
	}
	if pw, _ := fake.Env(t, "RESTIC_PASSWORD"); pw != "stored-pw" {
		t.Errorf("RESTIC_PASSWORD = %q, want stored-pw", pw)
	}
	if !strings.HasSuffix(a.Repository(), "repo") {
		t.Errorf("Repository() = %q", a.Repository())
	}
}

func TestBTApp_BackupFailureRecorded(t *testing.T) {
	t.Setenv(PasswordEnv, "pw")
	fake := testutil.NewFakeRestic(t, "", "Fatal: wrong password or no key found\n", 12)
	a, _ := newTestApp(t, fake)

	if _, err := a.Backup(context.Background(), "src"); err == nil {
		t.Fatal("Backup() expected error")
	}

	runs, _ := a.History(0)
	if len(runs) != 1 || runs[0].Status != bt.RunStatusFailed {
		t.Fatalf("History() = %+v", runs)
	}
	if !strings.Contains(runs[0].Error, "wrong password") {
		t.Errorf("run error = %q", runs[0].Error)
	}
}

func TestNewBTApp_badRepository(t *testing.T) {
	cfg := config.NewConfig("h", t.TempDir())
	cfg.Restic.Repository = config.RepositoryConfig{Type: "ftp"}

	_, err := NewBTApp(cfg, Options{})
	if err == nil || !strings.Contains(err.Error(), "repository location") {
		t.Errorf("NewBTApp() error = %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Error("NewBTApp() error does not wrap its cause")
	}
}

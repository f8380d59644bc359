package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBtHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "backup finished",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tbackup finished\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "checking cache",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tchecking cache\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "path checked",
			attrs:   []slog.Attr{slog.String("path", "/docs/file.txt"), slog.Int("size", 42)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tpath checked\tpath=/docs/file.txt\tsize=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &btHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestBtHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &btHandler{w: &buf, opID: "op-1"}

	// Add pre-set attrs
	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "restic")}).(*btHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "running restic", 0)
	r.AddAttrs(slog.String("key", "abc"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=restic") {
		t.Errorf("expected pre-set attr component=restic, got: %q", got)
	}
	if !strings.Contains(got, "key=abc") {
		t.Errorf("expected record attr key=abc, got: %q", got)
	}
}

func TestBtHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := &btHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*btHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestBtHandler_Enabled(t *testing.T) {
	h := &btHandler{}
	// All levels should be enabled
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !h.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = false, want true", level)
		}
	}
}

func TestBtHandler_levelFilter(t *testing.T) {
	h := newBTHandler(&bytes.Buffer{}, "op-1", slog.LevelWarn)

	for level, want := range map[slog.Level]bool{
		slog.LevelDebug: false,
		slog.LevelInfo:  false,
		slog.LevelWarn:  true,
		slog.LevelError: true,
	} {
		if got := h.Enabled(context.Background(), level); got != want {
			t.Errorf("Enabled(%v) = %v, want %v", level, got, want)
		}
	}
}

func TestBtHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newBTHandler(&buf, "op-1", nil))

	logger.WithGroup("restic").Info("ran", "command", "backup")

	if got := buf.String(); !strings.Contains(got, "\trestic.command=backup") {
		t.Errorf("expected grouped key restic.command, got: %q", got)
	}
}

func TestTeeHandler(t *testing.T) {
	var file, console bytes.Buffer
	logger := slog.New(teeHandler{
		newBTHandler(&file, "op-1", slog.LevelDebug),
		newBTHandler(&console, "op-1", slog.LevelWarn),
	})

	logger.Debug("progress", "percent", 50)
	logger.Warn("skipping unreadable entry", "path", "/root/secret")

	if got := strings.Count(file.String(), "\n"); got != 2 {
		t.Errorf("file got %d lines, want 2: %q", got, file.String())
	}
	if strings.Contains(console.String(), "progress") {
		t.Errorf("console got a debug record: %q", console.String())
	}
	if !strings.Contains(console.String(), "path=/root/secret") {
		t.Errorf("console missing warning: %q", console.String())
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, f, err := newLogger(dir, "test-op", &console, slog.LevelInfo)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Debug("only in file")
	logger.Info("in both")

	data, err := os.ReadFile(filepath.Join(dir, "bt.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "only in file") || !strings.Contains(string(data), "in both") {
		t.Errorf("log file = %q", data)
	}
	if strings.Contains(console.String(), "only in file") || !strings.Contains(console.String(), "in both") {
		t.Errorf("console = %q", console.String())
	}
}

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FakeRestic is a shell script standing in for the restic binary. Each run
// records its arguments and environment, prints the configured output and
// exits with the configured code.
type FakeRestic struct {
	Binary string
	dir    string
}

// NewFakeRestic writes a fake restic into a temp directory.
func NewFakeRestic(t *testing.T, stdout, stderr string, code int) *FakeRestic {
	t.Helper()

	dir := t.TempDir()
	f := &FakeRestic{Binary: filepath.Join(dir, "restic"), dir: dir}

	writeFile(t, filepath.Join(dir, "stdout"), stdout, 0600)
	writeFile(t, filepath.Join(dir, "stderr"), stderr, 0600)

	script := fmt.Sprintf(`#!/bin/sh
printf '%%s\n' "$@" > %[1]q/args
env > %[1]q/env
cat %[1]q/stdout
cat %[1]q/stderr >&2
exit %[2]d
`, dir, code)
	writeFile(t, f.Binary, script, 0700)
	return f
}

// Args returns the arguments of the last run, or nil if it never ran.
func (f *FakeRestic) Args(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, "args"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading fake restic args: %v", err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

// Env returns the value of key in the environment of the last run.
func (f *FakeRestic) Env(t *testing.T, key string) (string, bool) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, "env"))
	if err != nil {
		t.Fatalf("reading fake restic env: %v", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if v, ok := strings.CutPrefix(line, key+"="); ok {
			return v, true
		}
	}
	return "", false
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

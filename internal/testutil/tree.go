package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MakeTree creates entries under root. An entry ending in "/" is a
// directory; anything else is a file whose content is its own name.
// Parent directories are created as needed.
func MakeTree(t *testing.T, root string, entries ...string) {
	t.Helper()

	for _, e := range entries {
		p := filepath.Join(root, filepath.FromSlash(e))
		if strings.HasSuffix(e, "/") {
			if err := os.MkdirAll(p, 0755); err != nil {
				t.Fatalf("creating dir %s: %v", e, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("creating parent of %s: %v", e, err)
		}
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0644); err != nil {
			t.Fatalf("writing %s: %v", e, err)
		}
	}
}

// TempRoot returns a fresh temp dir with symlinks resolved, so paths built
// under it match what a canonicalizing caller sees.
func TempRoot(t *testing.T) string {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolving temp dir: %v", err)
	}
	return root
}

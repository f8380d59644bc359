// Package target selects the files that belong to a backup job.
//
// A BackupTarget holds canonical root folders, exclusion patterns and tags.
// It can classify a single path against the selection (CheckPathIsInBackup)
// or enumerate the whole selection into a PathSink (GenerateFiles), pruning
// excluded directories instead of descending into them.
//
// A BackupTarget is not safe for concurrent use when AddFolder races with
// classification or traversal; callers serialize mutation themselves.
package target

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BackupTarget is a set of folders to back up, minus the exclusions.
type BackupTarget struct {
	folders    []string
	exclusions []Pattern
	tags       []string
}

// Definition is the serialized form of a BackupTarget.
type Definition struct {
	Folders    []string  `json:"folders" toml:"folders"`
	Exclusions []Pattern `json:"exclusions" toml:"exclusions"`
	Tags       []string  `json:"tags" toml:"tags"`
}

// New creates a BackupTarget. Every folder is canonicalized; the first one
// that cannot be resolved fails construction with a *PathResolutionError.
func New(folders []string, exclusions []Pattern, tags []string) (*BackupTarget, error) {
	canonical := make([]string, 0, len(folders))
	for _, folder := range folders {
		c, err := canonicalFolder(folder)
		if err != nil {
			return nil, err
		}
		canonical = append(canonical, c)
	}

	for _, p := range exclusions {
		if p.glob == "" {
			return nil, &PatternSyntaxError{Pattern: "", Err: errors.New("empty pattern")}
		}
	}

	return &BackupTarget{
		folders:    canonical,
		exclusions: append([]Pattern(nil), exclusions...),
		tags:       append([]string(nil), tags...),
	}, nil
}

// NewFromText creates a BackupTarget from raw exclusion strings.
// Folders are resolved before patterns are parsed, so a bad folder is
// reported even when a pattern is also invalid.
func NewFromText(folders []string, exclusions []string, tags []string) (*BackupTarget, error) {
	t, err := New(folders, nil, tags)
	if err != nil {
		return nil, err
	}

	patterns, err := ParsePatterns(exclusions)
	if err != nil {
		return nil, err
	}
	t.exclusions = patterns
	return t, nil
}

// FromDefinition rebuilds a BackupTarget from its serialized form,
// re-canonicalizing the folders.
func FromDefinition(def Definition) (*BackupTarget, error) {
	return New(def.Folders, def.Exclusions, def.Tags)
}

// Definition returns the serialized form of t.
func (t *BackupTarget) Definition() Definition {
	return Definition{
		Folders:    t.Folders(),
		Exclusions: t.Exclusions(),
		Tags:       t.Tags(),
	}
}

func (t *BackupTarget) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Definition())
}

func (t *BackupTarget) UnmarshalJSON(data []byte) error {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	parsed, err := FromDefinition(def)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// AddFolder canonicalizes path and appends it. Overlapping or duplicate
// folders are accepted as is.
func (t *BackupTarget) AddFolder(path string) error {
	c, err := canonicalFolder(path)
	if err != nil {
		return err
	}
	t.folders = append(t.folders, c)
	return nil
}

// CompileExclusions builds the matcher for the current exclusions.
func (t *BackupTarget) CompileExclusions() *PatternSet {
	return NewPatternSet(t.exclusions)
}

// Folders returns the canonical folders in insertion order.
func (t *BackupTarget) Folders() []string {
	return append([]string(nil), t.folders...)
}

// Exclusions returns the exclusion patterns in insertion order.
func (t *BackupTarget) Exclusions() []Pattern {
	return append([]Pattern(nil), t.exclusions...)
}

// Tags returns the tags in insertion order.
func (t *BackupTarget) Tags() []string {
	return append([]string(nil), t.tags...)
}

// Canonicalize resolves path to an absolute path with every symlink and
// relative segment removed. The path must exist.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &PathResolutionError{Path: path, Err: err}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &PathResolutionError{Path: path, Err: err}
	}
	return resolved, nil
}

func canonicalFolder(path string) (string, error) {
	c, err := Canonicalize(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(c)
	if err != nil {
		return "", &PathResolutionError{Path: path, Err: err}
	}
	if !info.IsDir() {
		return "", &PathResolutionError{Path: path, Err: fmt.Errorf("not a directory: %s", c)}
	}
	return c, nil
}

// isWithin reports whether path equals root or lies beneath it.
// Both must be clean absolute paths.
func isWithin(path, root string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

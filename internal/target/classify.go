package target

import "path/filepath"

// CheckPathIsInBackup classifies path against t.
//
// The queried path must resolve; a failure is returned as a
// *PathResolutionError. Folders that no longer resolve are treated as not
// containing the path.
//
// Under a folder, every ancestor of the path (itself included, up to the
// filesystem root) is tested against the exclusions, so excluding a directory
// excludes everything beneath it.
func (t *BackupTarget) CheckPathIsInBackup(path string) (Selection, error) {
	canonical, err := Canonicalize(path)
	if err != nil {
		return Irrelevant, err
	}

	if t.covers(canonical) {
		if t.CompileExclusions().MatchAncestors(canonical) {
			return Excluded, nil
		}
		return Included, nil
	}

	for _, folder := range t.folders {
		current, err := Canonicalize(folder)
		if err != nil {
			continue
		}
		if isWithin(current, canonical) {
			return Contains, nil
		}
	}

	return Irrelevant, nil
}

// covers reports whether path equals or lies beneath any folder.
func (t *BackupTarget) covers(path string) bool {
	for _, folder := range t.folders {
		if isWithin(path, folder) {
			return true
		}
	}
	return false
}

// MatchAncestors reports whether path or any of its ancestors, up to and
// including the filesystem root, matches the set.
func (s *PatternSet) MatchAncestors(path string) bool {
	if len(s.globs) == 0 {
		return false
	}
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		if s.Match(p) {
			return true
		}
		parent := filepath.Dir(p)
		if parent == p {
			return false
		}
	}
}

package target

import (
	"io/fs"
	"path/filepath"
)

// PathSink receives the selected paths. Insert must accept a path that is
// already present without error.
type PathSink interface {
	Insert(path string, payload any) error
	Count() int
}

// GenerateFiles walks every folder of t and inserts each selected file and
// directory into sink.
//
// Each entry is tested once against the exclusions. An excluded directory is
// never read, so nothing below it is tested or inserted. A folder that lies
// under an excluded directory is skipped entirely. Symlinks are not
// followed. Folders are walked as listed; overlapping folders insert the same
// paths twice, which the sink absorbs.
//
// Unreadable entries are passed to report as *TraversalEntryError and the walk
// goes on; report may be nil. A failed insert stops the walk and is returned
// as an *InsertError.
func (t *BackupTarget) GenerateFiles(sink PathSink, report func(error)) error {
	set := t.CompileExclusions()

	for _, folder := range t.folders {
		// A folder beneath an excluded directory contributes nothing.
		if set.MatchAncestors(filepath.Dir(folder)) {
			continue
		}

		err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if report != nil {
					report(&TraversalEntryError{Path: path, Err: err})
				}
				return nil
			}

			if set.Match(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if err := sink.Insert(path, nil); err != nil {
				return &InsertError{Path: path, Err: err}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

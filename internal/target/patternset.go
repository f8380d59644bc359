package target

import (
	"path/filepath"

	"github.com/gobwas/glob"
)

// PatternSet is a compiled collection of Patterns. A path matches the set
// when it matches any member.
type PatternSet struct {
	globs []glob.Glob
}

// NewPatternSet compiles patterns. Every Pattern was validated when it was
// built, so compilation cannot fail here.
func NewPatternSet(patterns []Pattern) *PatternSet {
	set := &PatternSet{globs: make([]glob.Glob, 0, len(patterns))}
	for _, p := range patterns {
		set.globs = append(set.globs, glob.MustCompile(p.glob, '/'))
	}
	return set
}

// Len returns the number of compiled patterns.
func (s *PatternSet) Len() int {
	return len(s.globs)
}

// Match reports whether path matches any pattern in the set.
func (s *PatternSet) Match(path string) bool {
	if len(s.globs) == 0 {
		return false
	}
	normalized := filepath.ToSlash(path)
	for _, g := range s.globs {
		if g.Match(normalized) {
			return true
		}
	}
	return false
}

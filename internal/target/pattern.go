package target

import (
	"errors"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
)

// anyDepth is prepended to relative patterns so they match at any nesting level.
const anyDepth = "**/"

// Pattern is a normalized exclusion glob.
//
// A pattern is either rooted (it starts with "/" and matches exactly that
// location) or depth-free (stored with a leading "**/" so that it matches the
// literal text under any directory). Trailing separators are never stored.
// The zero Pattern is not valid; build one with ParsePattern or NewPattern.
type Pattern struct {
	glob string
}

// ParsePattern normalizes user text into a Pattern.
func ParsePattern(text string) (Pattern, error) {
	trimmed := trimSeparators(text)
	if trimmed == "" {
		return Pattern{}, &PatternSyntaxError{Pattern: text, Err: errors.New("empty pattern")}
	}

	cleaned := path.Clean(trimmed)
	switch {
	case cleaned == ".":
		return Pattern{}, &PatternSyntaxError{Pattern: text, Err: errors.New("empty pattern")}
	case cleaned == ".." || strings.HasPrefix(cleaned, "../"):
		return Pattern{}, &PatternSyntaxError{Pattern: text, Err: errors.New("pattern may not start with ..")}
	}

	g := cleaned
	if !strings.HasPrefix(cleaned, "/") {
		g = anyDepth + cleaned
	}

	if err := validateGlob(g); err != nil {
		return Pattern{}, &PatternSyntaxError{Pattern: text, Err: err}
	}
	return Pattern{glob: g}, nil
}

// NewPattern wraps an already normalized glob. The glob must be rooted or
// start with the any-depth prefix; NewPattern never adds one.
func NewPattern(g string) (Pattern, error) {
	trimmed := trimSeparators(g)
	if trimmed == "" {
		return Pattern{}, &PatternSyntaxError{Pattern: g, Err: errors.New("empty pattern")}
	}
	if !strings.HasPrefix(trimmed, "/") && !strings.HasPrefix(trimmed, anyDepth) {
		return Pattern{}, &PatternSyntaxError{Pattern: g, Err: errors.New("glob must be absolute or start with **/")}
	}
	if err := validateGlob(trimmed); err != nil {
		return Pattern{}, &PatternSyntaxError{Pattern: g, Err: err}
	}
	return Pattern{glob: trimmed}, nil
}

// validateGlob rejects globs either matcher would misread. gobwas compiles
// some malformed globs (a dangling escape, an unclosed brace) into matchers
// that match nothing; doublestar catches those.
func validateGlob(g string) error {
	if !doublestar.ValidatePattern(g) {
		return errors.New("malformed glob")
	}
	if _, err := glob.Compile(g, '/'); err != nil {
		return err
	}
	return nil
}

// MustParsePattern is like ParsePattern but panics on error.
// Intended for tests and package-level literals.
func MustParsePattern(text string) Pattern {
	p, err := ParsePattern(text)
	if err != nil {
		panic(err)
	}
	return p
}

// Glob returns the normalized glob, which is what gets matched and what the
// backup command receives.
func (p Pattern) Glob() string {
	return p.glob
}

// Rooted reports whether the pattern is anchored at an absolute location.
func (p Pattern) Rooted() bool {
	return strings.HasPrefix(p.glob, "/")
}

// String returns the canonical text form. Depth-free patterns drop their
// any-depth prefix; ParsePattern adds it back.
func (p Pattern) String() string {
	if p.Rooted() {
		return p.glob
	}
	return strings.TrimPrefix(p.glob, anyDepth)
}

func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pattern) UnmarshalText(text []byte) error {
	parsed, err := ParsePattern(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePatterns parses every entry of texts, stopping at the first error.
func ParsePatterns(texts []string) ([]Pattern, error) {
	patterns := make([]Pattern, 0, len(texts))
	for _, text := range texts {
		p, err := ParsePattern(text)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// trimSeparators strips trailing "/" but keeps a lone root.
func trimSeparators(text string) string {
	trimmed := strings.TrimRight(text, "/")
	if trimmed == "" && strings.HasPrefix(text, "/") {
		return "/"
	}
	return trimmed
}

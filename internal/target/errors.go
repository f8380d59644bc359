package target

import (
	"errors"
	"fmt"
)

// Sentinels for the error categories of the selection engine.
// Each typed error below matches its sentinel with errors.Is.
var (
	ErrPathResolution = errors.New("path resolution failed")
	ErrPatternSyntax  = errors.New("invalid pattern syntax")
	ErrTraversalEntry = errors.New("traversal entry unreadable")
	ErrInsert         = errors.New("path store rejected insert")
)

// PathResolutionError reports a folder or queried path that could not be
// canonicalized.
type PathResolutionError struct {
	Path string
	Err  error
}

func (e *PathResolutionError) Error() string {
	return fmt.Sprintf("resolving path %s: %v", e.Path, e.Err)
}

func (e *PathResolutionError) Unwrap() error { return e.Err }

func (e *PathResolutionError) Is(target error) bool { return target == ErrPathResolution }

// PatternSyntaxError reports malformed glob text.
type PatternSyntaxError struct {
	Pattern string
	Err     error
}

func (e *PatternSyntaxError) Error() string {
	return fmt.Sprintf("parsing pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternSyntaxError) Unwrap() error { return e.Err }

func (e *PatternSyntaxError) Is(target error) bool { return target == ErrPatternSyntax }

// TraversalEntryError reports a single entry that could not be read while
// walking a folder. It is never fatal to GenerateFiles.
type TraversalEntryError struct {
	Path string
	Err  error
}

func (e *TraversalEntryError) Error() string {
	return fmt.Sprintf("walking %s: %v", e.Path, e.Err)
}

func (e *TraversalEntryError) Unwrap() error { return e.Err }

func (e *TraversalEntryError) Is(target error) bool { return target == ErrTraversalEntry }

// InsertError reports a path the destination store refused.
type InsertError struct {
	Path string
	Err  error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("inserting %s: %v", e.Path, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }

func (e *InsertError) Is(target error) bool { return target == ErrInsert }

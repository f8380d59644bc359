// Package pathstore holds a set of absolute paths as a trie of path
// components, so the selection can be queried by prefix and listed as a tree.
package pathstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"bt-restic/internal/target"
)

var (
	// ErrFull is returned when an insert would exceed the store's limit.
	ErrFull = errors.New("path store is full")
	// ErrRelativePath is returned for paths that are not absolute.
	ErrRelativePath = errors.New("path is not absolute")
)

type node struct {
	children map[string]*node
	present  bool
	payload  any
}

func newNode() *node {
	return &node{children: map[string]*node{}}
}

// Store is a trie of absolute paths. Intermediate components that were never
// inserted exist only as structure and are not counted or listed.
// Store is not safe for concurrent use.
type Store struct {
	root  *node
	count int
	limit int
}

// New creates an empty Store. A positive limit caps the number of distinct
// paths; zero means unlimited.
func New(limit int) *Store {
	return &Store{root: newNode(), limit: limit}
}

// Insert adds path with an optional payload. Inserting a path that is
// already present succeeds; a non-nil payload replaces the stored one.
func (s *Store) Insert(path string, payload any) error {
	parts, err := split(path)
	if err != nil {
		return err
	}

	n := s.root
	for _, part := range parts {
		child, ok := n.children[part]
		if !ok {
			child = newNode()
			n.children[part] = child
		}
		n = child
	}

	if n.present {
		if payload != nil {
			n.payload = payload
		}
		return nil
	}
	if s.limit > 0 && s.count >= s.limit {
		return fmt.Errorf("%w: limit %d", ErrFull, s.limit)
	}
	n.present = true
	n.payload = payload
	s.count++
	return nil
}

// Count returns the number of distinct paths inserted.
func (s *Store) Count() int {
	return s.count
}

// Contains reports whether path was inserted.
func (s *Store) Contains(path string) bool {
	n := s.find(path)
	return n != nil && n.present
}

// Payload returns the payload stored for path.
func (s *Store) Payload(path string) (any, bool) {
	n := s.find(path)
	if n == nil || !n.present {
		return nil, false
	}
	return n.payload, true
}

// Children returns the sorted names of the components directly below path,
// whether or not they were inserted themselves.
func (s *Store) Children(path string) []string {
	n := s.find(path)
	if n == nil {
		return nil
	}
	return sortedNames(n)
}

// Walk calls fn for every inserted path in lexical pre-order.
// A non-nil error from fn stops the walk and is returned.
func (s *Store) Walk(fn func(path string, payload any) error) error {
	return walk(s.root, "/", fn)
}

// Paths returns every inserted path in lexical pre-order.
func (s *Store) Paths() []string {
	paths := make([]string, 0, s.count)
	_ = s.Walk(func(path string, _ any) error {
		paths = append(paths, path)
		return nil
	})
	return paths
}

func walk(n *node, path string, fn func(string, any) error) error {
	if n.present {
		if err := fn(path, n.payload); err != nil {
			return err
		}
	}
	for _, name := range sortedNames(n) {
		if err := walk(n.children[name], joinPath(path, name), fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) find(path string) *node {
	parts, err := split(path)
	if err != nil {
		return nil
	}
	n := s.root
	for _, part := range parts {
		child, ok := n.children[part]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}

func split(path string) ([]string, error) {
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%w: %s", ErrRelativePath, path)
	}
	clean := filepath.ToSlash(filepath.Clean(path))
	var parts []string
	for _, part := range strings.Split(clean, "/") {
		if part == "" {
			continue
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func sortedNames(n *node) []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// Compile-time check that Store can receive a target's selection
var _ target.PathSink = (*Store)(nil)

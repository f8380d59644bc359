package pathstore

import (
	"errors"
	"reflect"
	"testing"
)

func TestStore_Insert(t *testing.T) {
	t.Run("counts distinct paths", func(t *testing.T) {
		t.Parallel()
		s := New(0)
		for _, p := range []string{"/data", "/data/a.txt", "/data/sub", "/data/a.txt", "/data/"} {
			if err := s.Insert(p, nil); err != nil {
				t.Fatalf("Insert(%q) error = %v", p, err)
			}
		}
		if s.Count() != 3 {
			t.Errorf("Count() = %d, want 3", s.Count())
		}
	})

	t.Run("intermediate components are not counted", func(t *testing.T) {
		t.Parallel()
		s := New(0)
		if err := s.Insert("/a/b/c", nil); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if s.Count() != 1 {
			t.Errorf("Count() = %d, want 1", s.Count())
		}
		if s.Contains("/a/b") {
			t.Error("Contains(/a/b) = true for structural node")
		}
		if !s.Contains("/a/b/c") {
			t.Error("Contains(/a/b/c) = false")
		}
	})

	t.Run("rejects relative paths", func(t *testing.T) {
		t.Parallel()
		s := New(0)
		if err := s.Insert("a/b", nil); !errors.Is(err, ErrRelativePath) {
			t.Errorf("Insert(a/b) error = %v, want ErrRelativePath", err)
		}
	})

	t.Run("limit caps distinct entries", func(t *testing.T) {
		t.Parallel()
		s := New(2)
		if err := s.Insert("/a", nil); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if err := s.Insert("/b", nil); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if err := s.Insert("/a", nil); err != nil {
			t.Errorf("re-Insert at limit error = %v", err)
		}
		if err := s.Insert("/c", nil); !errors.Is(err, ErrFull) {
			t.Errorf("Insert over limit error = %v, want ErrFull", err)
		}
		if s.Count() != 2 {
			t.Errorf("Count() = %d, want 2", s.Count())
		}
	})

	t.Run("root path", func(t *testing.T) {
		t.Parallel()
		s := New(0)
		if err := s.Insert("/", nil); err != nil {
			t.Fatalf("Insert(/) error = %v", err)
		}
		if !s.Contains("/") || s.Count() != 1 {
			t.Errorf("Contains(/) = %v, Count() = %d", s.Contains("/"), s.Count())
		}
	})
}

func TestStore_Payload(t *testing.T) {
	s := New(0)
	if err := s.Insert("/x", "first"); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := s.Insert("/x", nil); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if v, ok := s.Payload("/x"); !ok || v != "first" {
		t.Errorf("Payload() = %v, %v; nil re-insert should keep payload", v, ok)
	}
	if err := s.Insert("/x", "second"); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if v, _ := s.Payload("/x"); v != "second" {
		t.Errorf("Payload() = %v, want second", v)
	}
	if _, ok := s.Payload("/missing"); ok {
		t.Error("Payload(/missing) ok = true")
	}
}

func TestStore_PathsAndChildren(t *testing.T) {
	s := New(0)
	for _, p := range []string{"/data/sub", "/data", "/data/b.txt", "/data/a.txt", "/data/sub/z"} {
		if err := s.Insert(p, nil); err != nil {
			t.Fatalf("Insert(%q) error = %v", p, err)
		}
	}

	want := []string{"/data", "/data/a.txt", "/data/b.txt", "/data/sub", "/data/sub/z"}
	if got := s.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}

	if got := s.Children("/data"); !reflect.DeepEqual(got, []string{"a.txt", "b.txt", "sub"}) {
		t.Errorf("Children(/data) = %v", got)
	}
	if got := s.Children("/"); !reflect.DeepEqual(got, []string{"data"}) {
		t.Errorf("Children(/) = %v", got)
	}
	if got := s.Children("/nope"); got != nil {
		t.Errorf("Children(/nope) = %v, want nil", got)
	}
}

func TestStore_WalkStopsOnError(t *testing.T) {
	s := New(0)
	for _, p := range []string{"/a", "/b", "/c"} {
		if err := s.Insert(p, nil); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	stop := errors.New("stop")
	var seen []string
	err := s.Walk(func(path string, _ any) error {
		seen = append(seen, path)
		if path == "/b" {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("Walk() error = %v, want stop", err)
	}
	if !reflect.DeepEqual(seen, []string{"/a", "/b"}) {
		t.Errorf("visited %v", seen)
	}
}

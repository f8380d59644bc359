package restic

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Location is where a restic repository lives.
type Location interface {
	// Repository returns the repository string passed to restic's -r flag.
	Repository() string

	// Env returns the extra environment variables restic needs to reach the
	// repository, as KEY=value pairs.
	Env(ctx context.Context) ([]string, error)

	// Validate checks that the location is usable before restic is run.
	Validate(ctx context.Context) error

	location()
}

// LocalLocation is a repository on a local or mounted filesystem.
type LocalLocation struct {
	Path string
}

func (l *LocalLocation) Repository() string { return l.Path }

func (l *LocalLocation) Env(context.Context) ([]string, error) { return nil, nil }

// Validate requires an absolute path whose parent directory exists.
func (l *LocalLocation) Validate(context.Context) error {
	if !filepath.IsAbs(l.Path) {
		return fmt.Errorf("local repository path must be absolute: %q", l.Path)
	}
	parent := filepath.Dir(l.Path)
	info, err := os.Stat(parent)
	if err != nil {
		return fmt.Errorf("local repository parent: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("local repository parent is not a directory: %s", parent)
	}
	return nil
}

func (*LocalLocation) location() {}

// B2Location is a repository in a Backblaze B2 bucket.
type B2Location struct {
	Bucket     string
	Path       string
	AccountID  string
	AccountKey string
}

// Repository returns "b2:<bucket>:<path>".
func (l *B2Location) Repository() string {
	return fmt.Sprintf("b2:%s:%s", l.Bucket, l.Path)
}

func (l *B2Location) Env(context.Context) ([]string, error) {
	return []string{
		"B2_ACCOUNT_ID=" + l.AccountID,
		"B2_ACCOUNT_KEY=" + l.AccountKey,
	}, nil
}

func (l *B2Location) Validate(context.Context) error {
	var missing []string
	if l.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if l.AccountID == "" {
		missing = append(missing, "account_id")
	}
	if l.AccountKey == "" {
		missing = append(missing, "account_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("b2 repository requires %s", strings.Join(missing, ", "))
	}
	return nil
}

func (*B2Location) location() {}

var (
	_ Location = (*LocalLocation)(nil)
	_ Location = (*B2Location)(nil)
	_ Location = (*S3Location)(nil)
)

package bt

import (
	"context"
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"bt-restic/internal/target"
)

// Repository is a backup repository that snapshots are written to and read from.
type Repository interface {
	// Init creates the repository. It fails if the repository already exists.
	Init(ctx context.Context) error

	// Check verifies the repository's integrity. A false result with a nil
	// error means the repository was reached but is not healthy.
	Check(ctx context.Context) (bool, error)

	// Snapshots lists every snapshot in the repository.
	Snapshots(ctx context.Context) ([]*Snapshot, error)

	// Backup writes a new snapshot of the target's folders, honouring its
	// exclusions and tags.
	Backup(ctx context.Context, t *target.BackupTarget) (*BackupSummary, error)

	// Ls lists the nodes recorded in a snapshot.
	Ls(ctx context.Context, snapshotID string) ([]*Node, error)
}

// Snapshot describes one snapshot stored in a repository.
type Snapshot struct {
	ID       string    `json:"id"`
	ShortID  string    `json:"short_id"`
	Parent   string    `json:"parent,omitempty"`
	Tree     string    `json:"tree"`
	Time     time.Time `json:"time"`
	Hostname string    `json:"hostname"`
	Username string    `json:"username"`
	Paths    []string  `json:"paths"`
	Tags     []string  `json:"tags,omitempty"`
}

// Node is a file, directory or link inside a snapshot.
type Node struct {
	Name  string    `json:"name"`
	Type  string    `json:"type"`
	Path  string    `json:"path"`
	UID   uint32    `json:"uid"`
	GID   uint32    `json:"gid"`
	Size  uint64    `json:"size,omitempty"`
	Mode  uint32    `json:"mode,omitempty"`
	MTime time.Time `json:"mtime"`
	ATime time.Time `json:"atime"`
	CTime time.Time `json:"ctime"`
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n.Type == "dir" }

// BackupSummary is the outcome of a completed backup.
type BackupSummary struct {
	SnapshotID          string  `json:"snapshot_id"`
	FilesNew            int     `json:"files_new"`
	FilesChanged        int     `json:"files_changed"`
	FilesUnmodified     int     `json:"files_unmodified"`
	DirsNew             int     `json:"dirs_new"`
	DirsChanged         int     `json:"dirs_changed"`
	DirsUnmodified      int     `json:"dirs_unmodified"`
	DataAdded           int64   `json:"data_added"`
	TotalFilesProcessed int     `json:"total_files_processed"`
	TotalBytesProcessed int64   `json:"total_bytes_processed"`
	TotalDuration       float64 `json:"total_duration"`
}

// FilterNodes returns the nodes whose path matches the doublestar pattern.
// An empty pattern keeps every node.
func FilterNodes(nodes []*Node, pattern string) ([]*Node, error) {
	if pattern == "" {
		return nodes, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid match pattern: %q", pattern)
	}

	var matched []*Node
	for _, n := range nodes {
		ok, err := doublestar.Match(pattern, n.Path)
		if err != nil {
			return nil, fmt.Errorf("matching %s: %w", n.Path, err)
		}
		if ok {
			matched = append(matched, n)
		}
	}
	return matched, nil
}

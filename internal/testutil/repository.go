package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"bt-restic/internal/bt"
	"bt-restic/internal/fs"
	"bt-restic/internal/pathstore"
	"bt-restic/internal/target"
)

// MemoryRepository is an in-memory bt.Repository. Backup walks the target
// for real and keeps the selected paths as the snapshot's nodes.
// Safe for concurrent use.
type MemoryRepository struct {
	mu          sync.Mutex
	initialized bool
	snapshots   []*bt.Snapshot
	nodes       map[string][]*bt.Node // snapshot ID -> nodes
	clock       bt.Clock

	// Errors returned by the corresponding methods when set.
	InitErr   error
	CheckErr  error
	BackupErr error
	LsErr     error

	// Unhealthy makes Check report problems without an error.
	Unhealthy bool
}

// NewMemoryRepository creates an uninitialized repository.
func NewMemoryRepository(clock bt.Clock) *MemoryRepository {
	if clock == nil {
		clock = FixedClock()
	}
	return &MemoryRepository{
		nodes: make(map[string][]*bt.Node),
		clock: clock,
	}
}

func (r *MemoryRepository) Init(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.InitErr != nil {
		return r.InitErr
	}
	if r.initialized {
		return fmt.Errorf("repository already initialized")
	}
	r.initialized = true
	return nil
}

func (r *MemoryRepository) Check(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CheckErr != nil {
		return false, r.CheckErr
	}
	if !r.initialized {
		return false, fmt.Errorf("repository not initialized")
	}
	return !r.Unhealthy, nil
}

func (r *MemoryRepository) Snapshots(context.Context) ([]*bt.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil, fmt.Errorf("repository not initialized")
	}
	return append([]*bt.Snapshot(nil), r.snapshots...), nil
}

func (r *MemoryRepository) Backup(_ context.Context, t *target.BackupTarget) (*bt.BackupSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.BackupErr != nil {
		return nil, r.BackupErr
	}
	if !r.initialized {
		return nil, fmt.Errorf("repository not initialized")
	}

	store := pathstore.New(0)
	if err := t.GenerateFiles(store, nil); err != nil {
		return nil, err
	}

	id := fmt.Sprintf("%064x", len(r.snapshots)+1)
	snap := &bt.Snapshot{
		ID:       id,
		ShortID:  id[:8],
		Time:     r.clock.Now(),
		Hostname: "test-host",
		Paths:    t.Folders(),
		Tags:     t.Tags(),
	}
	if n := len(r.snapshots); n > 0 {
		snap.Parent = r.snapshots[n-1].ID
	}

	var nodes []*bt.Node
	files := 0
	for _, p := range store.Paths() {
		node, err := fs.StatNode(p)
		if err != nil {
			node = &bt.Node{Name: filepath.Base(p), Path: p, Type: "file"}
		}
		if node.Type == "file" {
			files++
		}
		nodes = append(nodes, node)
	}

	r.snapshots = append(r.snapshots, snap)
	r.nodes[id] = nodes

	return &bt.BackupSummary{
		SnapshotID:          id,
		FilesNew:            files,
		TotalFilesProcessed: files,
		TotalDuration:       time.Second.Seconds(),
	}, nil
}

func (r *MemoryRepository) Ls(_ context.Context, snapshotID string) ([]*bt.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.LsErr != nil {
		return nil, r.LsErr
	}
	for _, s := range r.snapshots {
		if s.ID == snapshotID || s.ShortID == snapshotID {
			return append([]*bt.Node(nil), r.nodes[s.ID]...), nil
		}
	}
	return nil, fmt.Errorf("snapshot not found: %s", snapshotID)
}

// Initialized reports whether Init has succeeded.
func (r *MemoryRepository) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

var _ bt.Repository = (*MemoryRepository)(nil)

package bt

import (
	"context"
	"errors"
	"fmt"

	"bt-restic/internal/pathstore"
	"bt-restic/internal/target"
)

// BTService is the orchestration layer that coordinates backup targets, the
// repository and the run history for the CLI.
type BTService struct {
	database   Database
	repository Repository
	logger     Logger
	clock      Clock
	idgen      IDGenerator
}

// NewBTService creates a new BTService with the provided dependencies.
// logger, clock and idgen may be nil; defaults are used.
func NewBTService(database Database, repository Repository, logger Logger, clock Clock, idgen IDGenerator) *BTService {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	return &BTService{
		database:   database,
		repository: repository,
		logger:     logger,
		clock:      clock,
		idgen:      idgen,
	}
}

// Check reports how path relates to the target.
func (s *BTService) Check(t *target.BackupTarget, path string) (target.Selection, error) {
	sel, err := t.CheckPathIsInBackup(path)
	if err != nil {
		return target.Irrelevant, fmt.Errorf("checking %s: %w", path, err)
	}
	s.logger.Debug("path checked", "path", path, "selection", sel.String())
	return sel, nil
}

// FileSelection is the result of SelectFiles.
type FileSelection struct {
	Files   *pathstore.Store
	Skipped []error // unreadable entries, one *target.TraversalEntryError each
}

// SelectFiles walks the target and collects every file and directory a
// backup would include. Unreadable entries are logged and collected in
// Skipped; they do not fail the selection.
func (s *BTService) SelectFiles(t *target.BackupTarget) (*FileSelection, error) {
	sel := &FileSelection{Files: pathstore.New(0)}

	report := func(err error) {
		s.logger.Warn("skipping unreadable entry", "error", err)
		sel.Skipped = append(sel.Skipped, err)
	}

	if err := t.GenerateFiles(sel.Files, report); err != nil {
		return nil, fmt.Errorf("selecting files: %w", err)
	}

	s.logger.Debug("files selected", "count", sel.Files.Count(), "skipped", len(sel.Skipped))
	return sel, nil
}

// Backup snapshots the target into the repository and records the run under
// name. The run is recorded as failed if either the selection or the
// repository fails.
func (s *BTService) Backup(ctx context.Context, name string, t *target.BackupTarget) (*BackupSummary, error) {
	run, err := s.startRun(name, OperationBackup)
	if err != nil {
		return nil, err
	}

	sel, err := s.SelectFiles(t)
	if err != nil {
		return nil, s.failRun(run, err)
	}
	run.SelectedCount = sel.Files.Count()

	s.logger.Info("backup started", "target", name, "folders", len(t.Folders()), "selected", run.SelectedCount)

	summary, err := s.repository.Backup(ctx, t)
	if err != nil {
		return nil, s.failRun(run, fmt.Errorf("backing up %s: %w", name, err))
	}

	run.SnapshotID = summary.SnapshotID
	run.FilesNew = summary.FilesNew
	run.FilesChanged = summary.FilesChanged
	run.BytesAdded = summary.DataAdded
	if err := s.finishRun(run); err != nil {
		return nil, err
	}

	s.logger.Info("backup finished",
		"target", name,
		"snapshot", summary.SnapshotID,
		"files_new", summary.FilesNew,
		"files_changed", summary.FilesChanged,
		"data_added", summary.DataAdded,
	)
	return summary, nil
}

// Snapshots lists the repository's snapshots.
func (s *BTService) Snapshots(ctx context.Context) ([]*Snapshot, error) {
	snapshots, err := s.repository.Snapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	return snapshots, nil
}

// List returns the nodes of a snapshot, narrowed to those matching match
// when it is not empty.
func (s *BTService) List(ctx context.Context, snapshotID string, match string) ([]*Node, error) {
	nodes, err := s.repository.Ls(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshot %s: %w", snapshotID, err)
	}
	return FilterNodes(nodes, match)
}

// InitRepository creates the repository and records the run.
func (s *BTService) InitRepository(ctx context.Context) error {
	run, err := s.startRun("", OperationInit)
	if err != nil {
		return err
	}

	if err := s.repository.Init(ctx); err != nil {
		return s.failRun(run, fmt.Errorf("initializing repository: %w", err))
	}

	s.logger.Info("repository initialized")
	return s.finishRun(run)
}

// CheckRepository verifies the repository and records the run. An unhealthy
// repository is recorded as a failed run but is not an error.
func (s *BTService) CheckRepository(ctx context.Context) (bool, error) {
	run, err := s.startRun("", OperationCheck)
	if err != nil {
		return false, err
	}

	ok, err := s.repository.Check(ctx)
	if err != nil {
		return false, s.failRun(run, fmt.Errorf("checking repository: %w", err))
	}
	if !ok {
		s.logger.Warn("repository check failed")
		if err := s.failRun(run, errCheckFailed); err != errCheckFailed {
			return false, err
		}
		return false, nil
	}

	s.logger.Info("repository check passed")
	return true, s.finishRun(run)
}

// History returns the most recent runs, newest first.
func (s *BTService) History(limit int) ([]*Run, error) {
	runs, err := s.database.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

var errCheckFailed = errors.New("repository check reported errors")

func (s *BTService) startRun(name string, op Operation) (*Run, error) {
	run := &Run{
		ID:        s.idgen.New(),
		Target:    name,
		Operation: op,
		Status:    RunStatusRunning,
		StartedAt: s.clock.Now(),
	}
	if err := s.database.CreateRun(run); err != nil {
		return nil, fmt.Errorf("recording %s run: %w", op, err)
	}
	return run, nil
}

func (s *BTService) finishRun(run *Run) error {
	run.Status = RunStatusSuccess
	run.FinishedAt = s.clock.Now()
	if err := s.database.FinishRun(run); err != nil {
		return fmt.Errorf("recording %s run: %w", run.Operation, err)
	}
	return nil
}

// failRun records cause on the run and returns it, joined with any error
// from recording.
func (s *BTService) failRun(run *Run, cause error) error {
	run.Status = RunStatusFailed
	run.FinishedAt = s.clock.Now()
	run.Error = cause.Error()
	if err := s.database.FinishRun(run); err != nil {
		s.logger.Error("failed to record run", "run", run.ID, "error", err)
		return errors.Join(cause, fmt.Errorf("recording %s run: %w", run.Operation, err))
	}
	return cause
}

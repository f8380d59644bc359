package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"bt-restic/internal/bt"
	"bt-restic/internal/config"
	"bt-restic/internal/database"
	"bt-restic/internal/fs"
	"bt-restic/internal/restic"
	"bt-restic/internal/secret"
	"bt-restic/internal/target"
)

// Options adjust how a BTApp is built.
type Options struct {
	// Console receives log records at ConsoleLevel and above. Defaults to stderr.
	Console      io.Writer
	ConsoleLevel slog.Level
}

// BTApp is the application layer between the CLI and BTService.
// It constructs all dependencies from config, resolves target names to
// BackupTargets, and manages the DB lifecycle on Close.
type BTApp struct {
	cfg       *config.Config
	db        bt.Database
	passwords *secret.PasswordStore
	client    *restic.Client
	service   *bt.BTService
	logger    *slog.Logger
	logFile   *os.File
}

// NewBTApp creates a fully wired BTApp from the given config.
// The caller must call Close when done.
func NewBTApp(cfg *config.Config, opts Options) (*BTApp, error) {
	if opts.Console == nil {
		opts.Console = os.Stderr
	}

	loc, err := restic.NewLocationFromConfig(cfg.Restic.Repository)
	if err != nil {
		return nil, fmt.Errorf("creating repository location: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, opts.Console, opts.ConsoleLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	btLogger := &slogAdapter{l: logger}

	passwords := secret.NewPasswordStore(cfg.Restic.PasswordFile, cfg.Restic.IdentityFile)
	client := restic.NewClient(cfg.Restic.Binary, passwordSource(passwords), loc, &slogAdapter{l: logger.WithGroup("restic")})
	svc := bt.NewBTService(db, client, btLogger, bt.RealClock{}, bt.UUIDGenerator{})

	return &BTApp{
		cfg:       cfg,
		db:        db,
		passwords: passwords,
		client:    client,
		service:   svc,
		logger:    logger,
		logFile:   logFile,
	}, nil
}

// passwordSource prefers a password from the environment over the
// encrypted password file.
func passwordSource(store *secret.PasswordStore) restic.PasswordSource {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return secret.StaticPassword(pw)
	}
	return store
}

// Target builds the named target from config. An empty name selects the
// first target. The resolved name is returned with it.
func (a *BTApp) Target(name string) (*target.BackupTarget, string, error) {
	tc, err := a.cfg.Target(name)
	if err != nil {
		return nil, "", err
	}
	t, err := fs.TargetFromConfig(*tc)
	if err != nil {
		return nil, "", err
	}
	return t, tc.Name, nil
}

// Check classifies a path against the named target.
func (a *BTApp) Check(targetName, path string) (target.Selection, error) {
	t, _, err := a.Target(targetName)
	if err != nil {
		return target.Irrelevant, err
	}
	return a.service.Check(t, path)
}

// Stat describes path the way a snapshot listing would, without following a
// final symlink.
func (a *BTApp) Stat(path string) (*bt.Node, error) {
	return fs.StatNode(path)
}

// SelectFiles lists what a backup of the named target would include.
func (a *BTApp) SelectFiles(targetName string) (*bt.FileSelection, error) {
	t, _, err := a.Target(targetName)
	if err != nil {
		return nil, err
	}
	return a.service.SelectFiles(t)
}

// Backup backs up the named target.
func (a *BTApp) Backup(ctx context.Context, targetName string) (*bt.BackupSummary, error) {
	t, name, err := a.Target(targetName)
	if err != nil {
		return nil, err
	}
	return a.service.Backup(ctx, name, t)
}

// TargetNames returns the configured target names in config order.
func (a *BTApp) TargetNames() []string {
	names := make([]string, len(a.cfg.Targets))
	for i, t := range a.cfg.Targets {
		names[i] = t.Name
	}
	return names
}

// Snapshots lists the repository's snapshots.
func (a *BTApp) Snapshots(ctx context.Context) ([]*bt.Snapshot, error) {
	return a.service.Snapshots(ctx)
}

// List lists a snapshot's nodes, narrowed by an optional match pattern.
func (a *BTApp) List(ctx context.Context, snapshotID, match string) ([]*bt.Node, error) {
	return a.service.List(ctx, snapshotID, match)
}

// InitRepository creates the repository. The password must be set up first.
func (a *BTApp) InitRepository(ctx context.Context) error {
	if os.Getenv(PasswordEnv) == "" && !a.passwords.IsConfigured() {
		return fmt.Errorf("repository password not set up: run 'bt repo password' first")
	}
	return a.service.InitRepository(ctx)
}

// CheckRepository verifies the repository.
func (a *BTApp) CheckRepository(ctx context.Context) (bool, error) {
	return a.service.CheckRepository(ctx)
}

// SetPassword stores the repository password encrypted on disk.
func (a *BTApp) SetPassword(password string) error {
	if err := a.passwords.Setup(password); err != nil {
		return err
	}
	a.logger.Info("repository password stored", "file", a.cfg.Restic.PasswordFile)
	return nil
}

// History returns the most recent runs.
func (a *BTApp) History(limit int) ([]*bt.Run, error) {
	return a.service.History(limit)
}

// Repository returns the repository string restic is pointed at.
func (a *BTApp) Repository() string {
	return a.client.Location().Repository()
}

// Close closes the database and the log file.
func (a *BTApp) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}

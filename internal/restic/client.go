// Package restic drives the restic command-line program against a repository.
package restic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"bt-restic/internal/bt"
	"bt-restic/internal/target"
)

// PasswordSource supplies the repository password.
type PasswordSource interface {
	Password() (string, error)
}

// Client runs restic commands against one repository.
type Client struct {
	binary   string
	password PasswordSource
	location Location
	logger   bt.Logger
}

// NewClient creates a Client. binary defaults to "restic" on PATH.
func NewClient(binary string, password PasswordSource, location Location, logger bt.Logger) *Client {
	if binary == "" {
		binary = "restic"
	}
	if logger == nil {
		logger = bt.NewNopLogger()
	}
	return &Client{
		binary:   binary,
		password: password,
		location: location,
		logger:   logger,
	}
}

// Location returns the repository location.
func (c *Client) Location() Location {
	return c.location
}

// Init creates the repository.
func (c *Client) Init(ctx context.Context) error {
	if err := c.location.Validate(ctx); err != nil {
		return fmt.Errorf("invalid repository location: %w", err)
	}
	_, err := c.run(ctx, "init")
	return err
}

// Check runs `restic check`. It returns false without error when restic
// reaches the repository but finds problems. A missing repository or a wrong
// password is an error.
func (c *Client) Check(ctx context.Context) (bool, error) {
	if err := c.location.Validate(ctx); err != nil {
		return false, fmt.Errorf("invalid repository location: %w", err)
	}

	_, err := c.run(ctx, "check")
	if err == nil {
		return true, nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == exitFatal {
		c.logger.Warn("restic check reported errors", "stderr", lastLine(exitErr.Stderr))
		return false, nil
	}
	return false, err
}

// Snapshots lists the repository's snapshots.
func (c *Client) Snapshots(ctx context.Context) ([]*bt.Snapshot, error) {
	out, err := c.run(ctx, "--json", "snapshots")
	if err != nil {
		return nil, err
	}
	return parseSnapshots(out)
}

// Backup runs `restic backup` for the target and returns its summary.
//
// Progress lines are logged at debug level as they arrive. If restic could
// not read some files it still writes a snapshot; that case returns the
// summary and logs a warning.
func (c *Client) Backup(ctx context.Context, t *target.BackupTarget) (*bt.BackupSummary, error) {
	cmd, stderr, err := c.command(ctx, BackupArgs(t)...)
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("restic backup: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting restic: %w", err)
	}

	summary, parseErr := parseBackup(stdout, c.logger)
	if parseErr != nil {
		// Drain so restic does not block on a full pipe before Wait.
		io.Copy(io.Discard, stdout)
	}

	if err := c.exitError(cmd.Wait(), "backup", stderr); err != nil {
		var exitErr *ExitError
		if !errors.As(err, &exitErr) || exitErr.Code != exitPartialBackup || summary == nil {
			return nil, err
		}
		c.logger.Warn("backup incomplete, some files could not be read", "snapshot", summary.SnapshotID)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return summary, nil
}

// Ls lists the nodes of a snapshot.
func (c *Client) Ls(ctx context.Context, snapshotID string) ([]*bt.Node, error) {
	if err := ValidateSnapshotID(snapshotID); err != nil {
		return nil, err
	}
	out, err := c.run(ctx, "--json", "ls", snapshotID)
	if err != nil {
		return nil, err
	}
	return parseLs(bytes.NewReader(out))
}

// BackupArgs builds the restic arguments for backing up t: the folders as
// positional arguments, one --exclude per exclusion and one --tag per tag.
func BackupArgs(t *target.BackupTarget) []string {
	args := []string{"--json", "backup"}
	args = append(args, t.Folders()...)
	for _, p := range t.Exclusions() {
		args = append(args, "--exclude", p.Glob())
	}
	for _, tag := range t.Tags() {
		args = append(args, "--tag", tag)
	}
	return args
}

// run executes restic and returns its stdout.
func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd, stderr, err := c.command(ctx, args...)
	if err != nil {
		return nil, err
	}

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := c.exitError(cmd.Run(), subcommand(args), stderr); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

// command prepares a restic invocation with the repository flag and the
// password and location variables on top of the current environment.
func (c *Client) command(ctx context.Context, args ...string) (*exec.Cmd, *bytes.Buffer, error) {
	password, err := c.password.Password()
	if err != nil {
		return nil, nil, fmt.Errorf("reading repository password: %w", err)
	}

	locEnv, err := c.location.Env(ctx)
	if err != nil {
		return nil, nil, err
	}

	full := append([]string{"-r", c.location.Repository()}, args...)
	cmd := exec.CommandContext(ctx, c.binary, full...)
	cmd.Env = append(os.Environ(), "RESTIC_PASSWORD="+password)
	cmd.Env = append(cmd.Env, locEnv...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.logger.Debug("running restic", "command", subcommand(args), "repository", c.location.Repository())
	return cmd, &stderr, nil
}

func (c *Client) exitError(err error, command string, stderr *bytes.Buffer) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: command, Code: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return fmt.Errorf("running restic %s: %w", command, err)
}

// subcommand returns the first argument that is not a flag.
func subcommand(args []string) string {
	for _, a := range args {
		if len(a) > 0 && a[0] != '-' {
			return a
		}
	}
	return ""
}

var _ bt.Repository = (*Client)(nil)

package restic

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRepoNotFound means restic could not open a repository at the location.
	ErrRepoNotFound = errors.New("restic repository not found at location")

	// ErrWrongPassword means the repository exists but the password does not open it.
	ErrWrongPassword = errors.New("restic repository cannot be opened with this password")

	// ErrLocked means another process holds an exclusive lock on the repository.
	ErrLocked = errors.New("restic repository is locked")

	// ErrInvalidID means a snapshot ID is not a hex string.
	ErrInvalidID = errors.New("snapshot id must be hexadecimal")

	// ErrNoOutput means restic succeeded but printed nothing that could be parsed.
	ErrNoOutput = errors.New("no output from restic")
)

// Exit codes restic documents for its commands.
const (
	exitFatal         = 1
	exitPartialBackup = 3
	exitRepoNotFound  = 10
	exitLockFailed    = 11
	exitWrongPassword = 12
)

// ExitError is a restic invocation that exited with a non-zero status.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("restic %s exited with status %d", e.Command, e.Code)
	if s := lastLine(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Is maps restic's exit codes onto the package's sentinel errors.
func (e *ExitError) Is(target error) bool {
	switch target {
	case ErrRepoNotFound:
		return e.Code == exitRepoNotFound
	case ErrWrongPassword:
		return e.Code == exitWrongPassword
	case ErrLocked:
		return e.Code == exitLockFailed
	}
	return false
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// ValidateSnapshotID accepts "latest" or a hex ID of up to 64 characters.
func ValidateSnapshotID(id string) error {
	if id == "latest" {
		return nil
	}
	if id == "" || len(id) > 64 {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	for _, c := range id {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}

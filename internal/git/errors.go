package git

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBackendUnavailable means the git executable could not be located or started.
	ErrBackendUnavailable = errors.New("git is not available, is it installed and on PATH?")

	// ErrEncoding means git produced output that is not valid UTF-8 text.
	ErrEncoding = errors.New("git diff output is not valid UTF-8")

	// ErrNoStagedChanges means the staging area is empty.
	ErrNoStagedChanges = errors.New("no changes detected in the staging area")

	ErrStageFailed  = errors.New("git add failed")
	ErrCommitFailed = errors.New("git commit failed")
	ErrPushFailed   = errors.New("git push failed")
)

// BackendError is returned when a git command exits non-zero.
type BackendError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *BackendError) Error() string {
	cmd := strings.Join(e.Args, " ")
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", cmd, e.Stderr)
	}
	return fmt.Sprintf("%s: exit status %d", cmd, e.ExitCode)
}

// PushError reports a failed push. The commit it follows is left in place.
type PushError struct {
	Reason string
	Err    error
}

func (e *PushError) Error() string {
	if e.Reason == "" {
		return ErrPushFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrPushFailed, e.Reason)
}

func (e *PushError) Is(target error) bool { return target == ErrPushFailed }

func (e *PushError) Unwrap() error { return e.Err }

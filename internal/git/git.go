package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/samzong/aic/internal/gitcmd"
)

// Executor runs a single git invocation. gitcmd.Runner is the production implementation.
type Executor interface {
	Run(ctx context.Context, args ...string) (gitcmd.Result, error)
}

type Options struct {
	// Dir is the working tree to operate on. Empty means the current directory.
	Dir      string
	Logger   zerolog.Logger
	Executor Executor
}

// Client is the repository backend used by the commit workflow.
type Client struct {
	exec   Executor
	logger zerolog.Logger
}

func NewClient(opts Options) *Client {
	exec := opts.Executor
	if exec == nil {
		exec = gitcmd.Runner{Dir: opts.Dir, Logger: opts.Logger}
	}
	return &Client{exec: exec, logger: opts.Logger}
}

func (c *Client) run(ctx context.Context, args ...string) (gitcmd.Result, error) {
	result, err := c.exec.Run(ctx, args...)
	if err == nil {
		return result, nil
	}

	var exitErr *gitcmd.ExitError
	if errors.As(err, &exitErr) {
		return result, &BackendError{
			Args:     exitErr.Args,
			ExitCode: exitErr.Code,
			Stderr:   exitErr.Stderr,
		}
	}

	var startErr *gitcmd.StartError
	if errors.As(err, &startErr) {
		return result, fmt.Errorf("%w: %w", ErrBackendUnavailable, startErr)
	}

	return result, err
}

// IsGitRepository reports whether the working directory is inside a work tree.
func (c *Client) IsGitRepository(ctx context.Context) bool {
	res, err := c.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && res.StdoutString(true) == "true"
}

// StagedDiff returns the diff of the staging area.
func (c *Client) StagedDiff(ctx context.Context) (string, error) {
	res, err := c.run(ctx, "diff", "--staged")
	if err != nil {
		return "", err
	}

	if !utf8.Valid(res.Stdout) {
		return "", ErrEncoding
	}

	diff := string(res.Stdout)
	if strings.TrimSpace(diff) == "" {
		return "", ErrNoStagedChanges
	}

	c.logger.Debug().Int("bytes", len(diff)).Msg("read staged diff")
	return diff, nil
}

// AddAll stages every change in the working tree.
func (c *Client) AddAll(ctx context.Context) error {
	_, err := c.run(ctx, "add", ".")
	return wrapExit(ErrStageFailed, err)
}

// Commit records the staged changes. The message is passed as a single argv
// element and never goes through a shell.
func (c *Client) Commit(ctx context.Context, message string, args ...string) error {
	commitArgs := append([]string{"commit", "-m", message}, args...)
	_, err := c.run(ctx, commitArgs...)
	return wrapExit(ErrCommitFailed, err)
}

// Push pushes the current branch to its upstream.
func (c *Client) Push(ctx context.Context) error {
	_, err := c.run(ctx, "push")
	if err == nil {
		return nil
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		reason := backendErr.Stderr
		if reason == "" {
			reason = fmt.Sprintf("exit status %d", backendErr.ExitCode)
		}
		return &PushError{Reason: reason, Err: err}
	}
	return err
}

func wrapExit(sentinel, err error) error {
	if err == nil {
		return nil
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

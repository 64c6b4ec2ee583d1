package gitcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBinary is the executable used when Runner.Binary is empty.
const DefaultBinary = "git"

// Runner executes git commands with shared logging and output handling.
type Runner struct {
	Binary string
	Dir    string
	Env    []string
	Logger zerolog.Logger
}

// Result contains captured stdout/stderr for a git command.
type Result struct {
	Stdout []byte
	Stderr []byte
}

func (r Result) StdoutString(trim bool) string {
	output := string(r.Stdout)
	if trim {
		return strings.TrimSpace(output)
	}
	return output
}

func (r Result) StderrString(trim bool) string {
	output := string(r.Stderr)
	if trim {
		return strings.TrimSpace(output)
	}
	return output
}

// ExitError reports a command that started but exited with a non-zero status.
type ExitError struct {
	Args   []string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", strings.Join(e.Args, " "), e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// StartError reports a command that could not be located or started.
type StartError struct {
	Binary string
	Err    error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Binary, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

func (r Runner) binary() string {
	if r.Binary == "" {
		return DefaultBinary
	}
	return r.Binary
}

func (r Runner) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.binary(), args...)
	if r.Dir != "" {
		cmd.Dir = r.Dir
	}
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	return cmd
}

// Run executes a git command and captures stdout/stderr.
//
// A non-zero exit yields *ExitError; failing to locate or start the binary
// yields *StartError. Context cancellation is returned as ctx.Err().
func (r Runner) Run(ctx context.Context, args ...string) (Result, error) {
	cmd := r.command(ctx, args...)
	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	start := time.Now()
	err := cmd.Run()
	result := Result{Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes()}

	r.Logger.Debug().
		Str("cmd", r.binary()+" "+strings.Join(args, " ")).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("git command finished")

	return result, r.classify(ctx, args, result, err)
}

func (r Runner) classify(ctx context.Context, args []string, result Result, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Args:   append([]string{r.binary()}, args...),
			Code:   exitErr.ExitCode(),
			Stderr: result.StderrString(true),
		}
	}

	return &StartError{Binary: r.binary(), Err: err}
}

package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samzong/aic/internal/gitcmd"
)

type scriptedCall struct {
	result gitcmd.Result
	err    error
}

type fakeExecutor struct {
	calls   [][]string
	scripts map[string]scriptedCall
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{scripts: map[string]scriptedCall{}}
}

func (f *fakeExecutor) on(subcommand string, stdout string, err error) {
	f.scripts[subcommand] = scriptedCall{result: gitcmd.Result{Stdout: []byte(stdout)}, err: err}
}

func (f *fakeExecutor) Run(_ context.Context, args ...string) (gitcmd.Result, error) {
	f.calls = append(f.calls, args)
	call, ok := f.scripts[args[0]]
	if !ok {
		return gitcmd.Result{}, nil
	}
	return call.result, call.err
}

func exitErr(code int, stderr string, args ...string) error {
	return &gitcmd.ExitError{Args: append([]string{"git"}, args...), Code: code, Stderr: stderr}
}

func TestStagedDiff(t *testing.T) {
	tests := []struct {
		name    string
		stdout  string
		err     error
		want    string
		wantErr error
	}{
		{
			name:   "returns diff verbatim",
			stdout: "diff --git a/x b/x\n+foo\n",
			want:   "diff --git a/x b/x\n+foo\n",
		},
		{
			name:    "empty output",
			stdout:  "",
			wantErr: ErrNoStagedChanges,
		},
		{
			name:    "whitespace only output",
			stdout:  "   \n",
			wantErr: ErrNoStagedChanges,
		},
		{
			name:    "invalid utf8",
			stdout:  "diff --git a/x b/x\n+\xff\xfe\n",
			wantErr: ErrEncoding,
		},
		{
			name:    "git missing",
			err:     &gitcmd.StartError{Binary: "git", Err: exec.ErrNotFound},
			wantErr: ErrBackendUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeExecutor()
			fake.on("diff", tt.stdout, tt.err)
			client := NewClient(Options{Executor: fake})

			got, err := client.StagedDiff(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{"diff", "--staged"}, fake.calls[0])
		})
	}
}

func TestStagedDiff_BackendErrorCarriesStderr(t *testing.T) {
	fake := newFakeExecutor()
	fake.on("diff", "", exitErr(129, "fatal: not a git repository", "diff", "--staged"))
	client := NewClient(Options{Executor: fake})

	_, err := client.StagedDiff(context.Background())

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, 129, backendErr.ExitCode)
	assert.Equal(t, "fatal: not a git repository", backendErr.Stderr)
	assert.Contains(t, err.Error(), "fatal: not a git repository")
}

func TestAddAll(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fake := newFakeExecutor()
		client := NewClient(Options{Executor: fake})

		require.NoError(t, client.AddAll(context.Background()))
		assert.Equal(t, [][]string{{"add", "."}}, fake.calls)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		fake := newFakeExecutor()
		fake.on("add", "", exitErr(128, "fatal: pathspec error", "add", "."))
		client := NewClient(Options{Executor: fake})

		err := client.AddAll(context.Background())
		assert.ErrorIs(t, err, ErrStageFailed)
		var backendErr *BackendError
		assert.ErrorAs(t, err, &backendErr)
	})

	t.Run("git missing is not reported as stage failure", func(t *testing.T) {
		fake := newFakeExecutor()
		fake.on("add", "", &gitcmd.StartError{Binary: "git", Err: exec.ErrNotFound})
		client := NewClient(Options{Executor: fake})

		err := client.AddAll(context.Background())
		assert.ErrorIs(t, err, ErrBackendUnavailable)
		assert.NotErrorIs(t, err, ErrStageFailed)
	})
}

func TestCommit_PassesMessageAsSingleArgument(t *testing.T) {
	fake := newFakeExecutor()
	client := NewClient(Options{Executor: fake})

	message := `feat: add "quoted" $(rm -rf /) ; echo pwned`
	require.NoError(t, client.Commit(context.Background(), message, "--no-verify"))

	require.Len(t, fake.calls, 1)
	assert.Equal(t, []string{"commit", "-m", message, "--no-verify"}, fake.calls[0])
}

func TestCommit_Failure(t *testing.T) {
	fake := newFakeExecutor()
	fake.on("commit", "", exitErr(1, "", "commit", "-m", "x"))
	client := NewClient(Options{Executor: fake})

	err := client.Commit(context.Background(), "x")
	assert.ErrorIs(t, err, ErrCommitFailed)
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestPush(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fake := newFakeExecutor()
		client := NewClient(Options{Executor: fake})
		assert.NoError(t, client.Push(context.Background()))
	})

	t.Run("failure keeps reason", func(t *testing.T) {
		fake := newFakeExecutor()
		fake.on("push", "", exitErr(128, "fatal: no upstream configured", "push"))
		client := NewClient(Options{Executor: fake})

		err := client.Push(context.Background())
		assert.ErrorIs(t, err, ErrPushFailed)

		var pushErr *PushError
		require.ErrorAs(t, err, &pushErr)
		assert.Equal(t, "fatal: no upstream configured", pushErr.Reason)
		assert.NotErrorIs(t, err, ErrCommitFailed)
	})

	t.Run("failure without stderr", func(t *testing.T) {
		fake := newFakeExecutor()
		fake.on("push", "", exitErr(1, "", "push"))
		client := NewClient(Options{Executor: fake})

		var pushErr *PushError
		require.ErrorAs(t, client.Push(context.Background()), &pushErr)
		assert.Equal(t, "exit status 1", pushErr.Reason)
	})
}

func TestIsGitRepository(t *testing.T) {
	fake := newFakeExecutor()
	fake.on("rev-parse", "true\n", nil)
	assert.True(t, NewClient(Options{Executor: fake}).IsGitRepository(context.Background()))

	fake.on("rev-parse", "", exitErr(128, "fatal: not a git repository", "rev-parse"))
	assert.False(t, NewClient(Options{Executor: fake}).IsGitRepository(context.Background()))
}

// The tests below run real git inside an isolated temporary repository.

func initTempRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	runner := gitcmd.Runner{Dir: dir}
	ctx := context.Background()
	for _, args := range [][]string{
		{"init", "-q"},
		{"config", "user.name", "Test"},
		{"config", "user.email", "test@example.com"},
		{"config", "commit.gpgsign", "false"},
	} {
		_, err := runner.Run(ctx, args...)
		require.NoError(t, err)
	}
	return dir
}

func TestClient_TempRepoRoundTrip(t *testing.T) {
	dir := initTempRepo(t)
	ctx := context.Background()
	client := NewClient(Options{Dir: dir})

	assert.True(t, client.IsGitRepository(ctx))

	_, err := client.StagedDiff(ctx)
	assert.ErrorIs(t, err, ErrNoStagedChanges)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x"), []byte("foo\n"), 0o644))
	require.NoError(t, client.AddAll(ctx))

	diff, err := client.StagedDiff(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(diff, "diff --git a/x b/x"))
	assert.Contains(t, diff, "+foo")

	require.NoError(t, client.Commit(ctx, "feat: add foo"))

	log, err := gitcmd.Runner{Dir: dir}.Run(ctx, "log", "-1", "--format=%s")
	require.NoError(t, err)
	assert.Equal(t, "feat: add foo", log.StdoutString(true))

	// No remote is configured, so push must fail without touching the commit.
	err = client.Push(ctx)
	assert.True(t, errors.Is(err, ErrPushFailed))

	log, err = gitcmd.Runner{Dir: dir}.Run(ctx, "log", "-1", "--format=%s")
	require.NoError(t, err)
	assert.Equal(t, "feat: add foo", log.StdoutString(true))
}

func TestClient_CommitWithNothingStaged(t *testing.T) {
	dir := initTempRepo(t)
	client := NewClient(Options{Dir: dir})

	err := client.Commit(context.Background(), "chore: nothing")
	assert.ErrorIs(t, err, ErrCommitFailed)
}

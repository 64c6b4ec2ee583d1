package workflow

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samzong/aic/internal/git"
	"github.com/samzong/aic/internal/llm"
	"github.com/samzong/aic/internal/prompt"
	"github.com/samzong/aic/internal/ui"
)

type fakeGit struct {
	diff      string
	diffErr   error
	addErr    error
	commitErr error
	pushErr   error

	calls         []string
	commitMessage string
	commitArgs    []string
}

func (g *fakeGit) AddAll(context.Context) error {
	g.calls = append(g.calls, "add")
	return g.addErr
}

func (g *fakeGit) StagedDiff(context.Context) (string, error) {
	g.calls = append(g.calls, "diff")
	return g.diff, g.diffErr
}

func (g *fakeGit) Commit(_ context.Context, message string, args ...string) error {
	g.calls = append(g.calls, "commit")
	g.commitMessage = message
	g.commitArgs = args
	return g.commitErr
}

func (g *fakeGit) Push(context.Context) error {
	g.calls = append(g.calls, "push")
	return g.pushErr
}

type fakeGenerator struct {
	responses []string
	err       error
	prompts   []string
}

func (g *fakeGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	g.prompts = append(g.prompts, req.Prompt)
	if g.err != nil {
		return "", g.err
	}
	i := len(g.prompts) - 1
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	return g.responses[i], nil
}

type scriptedPrompter struct {
	decisions []Decision
	err       error
	seen      []string
}

func (p *scriptedPrompter) Decide(_ context.Context, message string) (Decision, error) {
	p.seen = append(p.seen, message)
	if p.err != nil {
		return DecisionCancel, p.err
	}
	d := p.decisions[0]
	p.decisions = p.decisions[1:]
	return d, nil
}

type promptBuilderFunc func(diff, language string) (string, error)

func (fn promptBuilderFunc) Build(diff, language string) (string, error) { return fn(diff, language) }

var defaultBuilder = promptBuilderFunc(func(diff, language string) (string, error) {
	return prompt.Build(diff, language), nil
})

const sampleDiff = "diff --git a/x b/x\n+foo\n"

func newTestFlow(g GitClient, gen Generator, opts CommitOptions, p Prompter) (*CommitFlow, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	opts.OutWriter = &out
	opts.ErrWriter = &errOut
	flow := NewCommitFlow(g, gen, defaultBuilder, opts)
	if p != nil {
		flow.SetPrompter(p)
	}
	return flow, &out, &errOut
}

func TestRun_RegenerateThenConfirm(t *testing.T) {
	g := &fakeGit{diff: sampleDiff}
	gen := &fakeGenerator{responses: []string{"feat: first", "feat: second"}}
	p := &scriptedPrompter{decisions: []Decision{DecisionRegenerate, DecisionAccept}}

	flow, _, _ := newTestFlow(g, gen, CommitOptions{}, p)
	require.NoError(t, flow.Run(context.Background()))

	require.Len(t, gen.prompts, 2)
	assert.Equal(t, gen.prompts[0], gen.prompts[1])
	assert.Equal(t, []string{"feat: first", "feat: second"}, p.seen)
	assert.Equal(t, "feat: second", g.commitMessage)
	assert.Equal(t, []string{"diff", "commit", "push"}, g.calls)
}

func TestRun_PromptUsesDiffAndLanguage(t *testing.T) {
	g := &fakeGit{diff: sampleDiff}
	gen := &fakeGenerator{responses: []string{"feat: add foo"}}
	p := &scriptedPrompter{decisions: []Decision{DecisionAccept}}

	flow, _, _ := newTestFlow(g, gen, CommitOptions{Language: "German"}, p)
	require.NoError(t, flow.Run(context.Background()))

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, prompt.Build(sampleDiff, "German"), gen.prompts[0])
}

func TestRun_DefaultLanguage(t *testing.T) {
	g := &fakeGit{diff: sampleDiff}
	gen := &fakeGenerator{responses: []string{"feat: add foo"}}
	p := &scriptedPrompter{decisions: []Decision{DecisionCancel}}

	flow, _, _ := newTestFlow(g, gen, CommitOptions{}, p)
	require.NoError(t, flow.Run(context.Background()))
	assert.Equal(t, prompt.Build(sampleDiff, prompt.DefaultLanguage), gen.prompts[0])
}

func TestRun_Cancel(t *testing.T) {
	g := &fakeGit{diff: sampleDiff}
	gen := &fakeGenerator{responses: []string{"feat: add foo"}}
	p := &scriptedPrompter{decisions: []Decision{DecisionCancel}}

	flow, _, errOut := newTestFlow(g, gen, CommitOptions{}, p)
	require.NoError(t, flow.Run(context.Background()))

	assert.Equal(t, []string{"diff"}, g.calls)
	assert.Contains(t, errOut.String(), "Commit cancelled by user")
}

func TestRun_PrintOnlyNeverCommits(t *testing.T) {
	g := &fakeGit{diff: sampleDiff}
	gen := &fakeGenerator{responses: []string{"feat: add foo"}}
	p := &scriptedPrompter{decisions: []Decision{DecisionAccept}}

	flow, out, errOut := newTestFlow(g, gen, CommitOptions{PrintOnly: true, AddAll: true}, p)
	require.NoError(t, flow.Run(context.Background()))

	assert.Equal(t, "feat: add foo\n", out.String())
	assert.Contains(t, errOut.String(), "Generated Commit Message:")
	assert.Contains(t, errOut.String(), "--all is ignored in print-only mode")
	assert.Equal(t, []string{"diff"}, g.calls)
	assert.Empty(t, p.seen)
	assert.Len(t, gen.prompts, 1)
}

func TestRun_PushFailureKeepsCommit(t *testing.T) {
	pushErr := &git.PushError{Reason: "rejected: non-fast-forward"}
	g := &fakeGit{diff: sampleDiff, pushErr: pushErr}
	gen := &fakeGenerator{responses: []string{"fix: bar"}}
	p := &scriptedPrompter{decisions: []Decision{DecisionAccept}}

	flow, _, errOut := newTestFlow(g, gen, CommitOptions{}, p)
	err := flow.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, git.ErrPushFailed)
	assert.NotErrorIs(t, err, git.ErrCommitFailed)
	assert.Contains(t, err.Error(), "commit created")
	assert.Equal(t, []string{"diff", "commit", "push"}, g.calls)
	assert.Contains(t, errOut.String(), "Successfully committed changes!")
}

func TestRun_CommitFailureSkipsPush(t *testing.T) {
	g := &fakeGit{diff: sampleDiff, commitErr: git.ErrCommitFailed}
	gen := &fakeGenerator{responses: []string{"fix: bar"}}
	p := &scriptedPrompter{decisions: []Decision{DecisionAccept}}

	flow, _, _ := newTestFlow(g, gen, CommitOptions{}, p)
	err := flow.Run(context.Background())

	assert.ErrorIs(t, err, git.ErrCommitFailed)
	assert.Equal(t, []string{"diff", "commit"}, g.calls)
}

func TestRun_StageFailureStopsBeforeDiff(t *testing.T) {
	g := &fakeGit{diff: sampleDiff, addErr: git.ErrStageFailed}
	gen := &fakeGenerator{responses: []string{"fix: bar"}}

	flow, _, _ := newTestFlow(g, gen, CommitOptions{AddAll: true}, &scriptedPrompter{})
	err := flow.Run(context.Background())

	assert.ErrorIs(t, err, git.ErrStageFailed)
	assert.Equal(t, []string{"add"}, g.calls)
	assert.Empty(t, gen.prompts)
}

func TestRun_AddAllStagesFirst(t *testing.T) {
	g := &fakeGit{diff: sampleDiff}
	gen := &fakeGenerator{responses: []string{"chore: tidy"}}
	p := &scriptedPrompter{decisions: []Decision{DecisionAccept}}

	flow, _, _ := newTestFlow(g, gen, CommitOptions{AddAll: true, NoVerify: true}, p)
	require.NoError(t, flow.Run(context.Background()))

	assert.Equal(t, []string{"add", "diff", "commit", "push"}, g.calls)
	assert.Equal(t, []string{"--no-verify"}, g.commitArgs)
}

func TestRun_NoStagedChangesSkipsGeneration(t *testing.T) {
	tests := []struct {
		name string
		git  *fakeGit
	}{
		{name: "backend reports nothing staged", git: &fakeGit{diffErr: git.ErrNoStagedChanges}},
		{name: "whitespace diff", git: &fakeGit{diff: "   \n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{responses: []string{"unused"}}
			flow, _, _ := newTestFlow(tt.git, gen, CommitOptions{}, &scriptedPrompter{})

			err := flow.Run(context.Background())
			assert.ErrorIs(t, err, git.ErrNoStagedChanges)
			assert.Empty(t, gen.prompts)
		})
	}
}

func TestRun_GenerationErrorPropagates(t *testing.T) {
	svcErr := &llm.ServiceError{Model: "gemini-2.0-flash", StatusCode: 400, Body: `{"error":"bad"}`}
	g := &fakeGit{diff: sampleDiff}
	gen := &fakeGenerator{err: svcErr}

	flow, _, _ := newTestFlow(g, gen, CommitOptions{}, &scriptedPrompter{})
	err := flow.Run(context.Background())

	var got *llm.ServiceError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, `{"error":"bad"}`, got.Body)
	assert.Equal(t, []string{"diff"}, g.calls)
}

func TestRun_PromptBuildError(t *testing.T) {
	g := &fakeGit{diff: sampleDiff}
	gen := &fakeGenerator{responses: []string{"unused"}}
	builder := promptBuilderFunc(func(string, string) (string, error) {
		return "", errors.New("template: boom")
	})

	var errOut bytes.Buffer
	flow := NewCommitFlow(g, gen, builder, CommitOptions{ErrWriter: &errOut})
	flow.SetPrompter(&scriptedPrompter{})

	err := flow.Run(context.Background())
	assert.ErrorContains(t, err, "failed to build prompt")
	assert.Empty(t, gen.prompts)
}

func TestReview_PrompterError(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"feat: a"}}
	p := &scriptedPrompter{err: errors.New("tty gone")}

	flow, _, _ := newTestFlow(&fakeGit{}, gen, CommitOptions{}, p)
	_, accepted, err := flow.Review(context.Background(), "prompt")

	assert.EqualError(t, err, "tty gone")
	assert.False(t, accepted)
}

func TestReview_WithLineMenu(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"feat: a", "feat: b"}}

	var menuOut bytes.Buffer
	menu := ui.NewLineMenu(bytes.NewBufferString("2\n1\n"), &menuOut)
	flow, _, _ := newTestFlow(&fakeGit{}, gen, CommitOptions{}, &MenuPrompter{Menu: menu, ErrWriter: &menuOut})

	message, accepted, err := flow.Review(context.Background(), "prompt")
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, "feat: b", message)
	assert.Equal(t, []string{"prompt", "prompt"}, gen.prompts)
}

func TestReview_DefaultPrompterReadsInput(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"feat: a", "feat: b"}}

	var errOut bytes.Buffer
	flow := NewCommitFlow(&fakeGit{}, gen, defaultBuilder, CommitOptions{
		In:        strings.NewReader("2\n3\n"),
		ErrWriter: &errOut,
	})

	_, accepted, err := flow.Review(context.Background(), "prompt")
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Len(t, gen.prompts, 2)
	assert.Contains(t, errOut.String(), "Confirm (commit & push)")
}

func TestReview_DefaultPrompterAutoYes(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"feat: a"}}

	flow := NewCommitFlow(&fakeGit{}, gen, defaultBuilder, CommitOptions{
		In:      strings.NewReader(""),
		AutoYes: true,
	})

	message, accepted, err := flow.Review(context.Background(), "prompt")
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, "feat: a", message)
}

package workflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/samzong/aic/internal/git"
	"github.com/samzong/aic/internal/llm"
	"github.com/samzong/aic/internal/prompt"
	"github.com/samzong/aic/internal/ui"
)

type CommitOptions struct {
	AddAll    bool
	PrintOnly bool
	NoVerify  bool
	AutoYes   bool
	Language  string
	// In feeds the default prompter. Defaults to os.Stdin.
	In        io.Reader
	ErrWriter io.Writer
	OutWriter io.Writer
}

// CommitFlow runs one pass of the pipeline: stage, diff, generate, review,
// commit and push.
type CommitFlow struct {
	git      GitClient
	gen      Generator
	builder  PromptBuilder
	opts     CommitOptions
	prompter Prompter
	logger   zerolog.Logger
}

func NewCommitFlow(git GitClient, gen Generator, builder PromptBuilder, opts CommitOptions) *CommitFlow {
	if opts.ErrWriter == nil {
		opts.ErrWriter = io.Discard
	}
	if opts.OutWriter == nil {
		opts.OutWriter = io.Discard
	}
	if opts.Language == "" {
		opts.Language = prompt.DefaultLanguage
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}

	return &CommitFlow{
		git:     git,
		gen:     gen,
		builder: builder,
		opts:    opts,
		logger:  zerolog.Nop(),
	}
}

func (f *CommitFlow) SetPrompter(p Prompter) {
	f.prompter = p
}

// getPrompter returns the injected prompter, or a menu over opts.In.
func (f *CommitFlow) getPrompter() Prompter {
	if f.prompter == nil {
		f.prompter = &MenuPrompter{
			Menu:      ui.NewMenu(f.opts.In, f.opts.ErrWriter),
			ErrWriter: f.opts.ErrWriter,
			AutoYes:   f.opts.AutoYes,
		}
	}
	return f.prompter
}

func (f *CommitFlow) SetLogger(logger zerolog.Logger) {
	f.logger = logger
}

// Run executes the workflow. A cancelled review returns nil.
func (f *CommitFlow) Run(ctx context.Context) error {
	if err := f.handleStaging(ctx); err != nil {
		return err
	}

	diff, err := f.git.StagedDiff(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(diff) == "" {
		return git.ErrNoStagedChanges
	}

	text, err := f.builder.Build(diff, f.opts.Language)
	if err != nil {
		return fmt.Errorf("failed to build prompt: %w", err)
	}

	if f.opts.PrintOnly {
		return f.printOnly(ctx, text)
	}

	message, accepted, err := f.Review(ctx, text)
	if err != nil {
		return err
	}
	if !accepted {
		fmt.Fprintln(f.opts.ErrWriter, "Commit cancelled by user")
		return nil
	}

	return f.performCommit(ctx, message)
}

func (f *CommitFlow) handleStaging(ctx context.Context) error {
	if !f.opts.AddAll {
		return nil
	}
	if f.opts.PrintOnly {
		fmt.Fprintln(f.opts.ErrWriter, ui.Warning("--all is ignored in print-only mode, nothing was staged."))
		return nil
	}

	if err := f.git.AddAll(ctx); err != nil {
		return err
	}
	fmt.Fprintln(f.opts.ErrWriter, "All changes have been added to the staging area.")
	return nil
}

// Review generates a message for promptText and asks the user about it
// until they accept or cancel. Every attempt reuses promptText unchanged.
func (f *CommitFlow) Review(ctx context.Context, promptText string) (string, bool, error) {
	for attempt := 1; ; attempt++ {
		message, err := f.generate(ctx, promptText)
		if err != nil {
			return "", false, err
		}

		fmt.Fprintln(f.opts.ErrWriter, "\n"+ui.Muted("Generated Commit Message:"))
		fmt.Fprintln(f.opts.OutWriter, ui.Suggestion(message))

		decision, err := f.getPrompter().Decide(ctx, message)
		if err != nil {
			return "", false, err
		}
		f.logger.Debug().Int("attempt", attempt).Stringer("decision", decision).Msg("review decision")

		switch decision {
		case DecisionAccept:
			return message, true, nil
		case DecisionRegenerate:
			fmt.Fprintln(f.opts.ErrWriter, "Regenerating commit message...")
		default:
			return "", false, nil
		}
	}
}

func (f *CommitFlow) printOnly(ctx context.Context, promptText string) error {
	message, err := f.generate(ctx, promptText)
	if err != nil {
		return err
	}

	fmt.Fprintln(f.opts.ErrWriter, ui.Muted("Generated Commit Message:"))
	fmt.Fprintln(f.opts.OutWriter, message)
	return nil
}

func (f *CommitFlow) generate(ctx context.Context, promptText string) (string, error) {
	sp := ui.NewSpinnerTo(f.opts.ErrWriter, "Generating commit message...")
	sp.Start()
	message, err := f.gen.Generate(ctx, llm.NewRequest(promptText))
	sp.Stop()

	if err != nil {
		return "", fmt.Errorf("failed to generate commit message: %w", err)
	}
	return message, nil
}

func (f *CommitFlow) buildCommitArgs() []string {
	var args []string
	if f.opts.NoVerify {
		args = append(args, "--no-verify")
	}
	return args
}

func (f *CommitFlow) performCommit(ctx context.Context, message string) error {
	if err := f.git.Commit(ctx, message, f.buildCommitArgs()...); err != nil {
		return err
	}
	fmt.Fprintln(f.opts.ErrWriter, "Successfully committed changes!")

	if err := f.git.Push(ctx); err != nil {
		return fmt.Errorf("commit created but push failed: %w", err)
	}
	fmt.Fprintln(f.opts.ErrWriter, "Successfully pushed changes!")
	return nil
}

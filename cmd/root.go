package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/samzong/aic/internal/config"
	"github.com/samzong/aic/internal/git"
	"github.com/samzong/aic/internal/llm"
	"github.com/samzong/aic/internal/logging"
	"github.com/samzong/aic/internal/prompt"
	"github.com/samzong/aic/internal/setup"
	"github.com/samzong/aic/internal/ui"
	"github.com/samzong/aic/internal/workflow"
)

var errNotRepository = errors.New("not a git repository (or any of the parent directories)")

var (
	cfgFile        string
	addAll         bool
	printOnly      bool
	language       string
	autoYes        bool
	noVerify       bool
	verbose        bool
	timeoutSeconds int

	logger    = zerolog.Nop()
	logCloser io.Closer

	rootCmd = &cobra.Command{
		Use:   "aic",
		Short: "aic - AI commit message generator",
		Long: `aic reads your staged changes, asks a generation service for a ` +
			`Conventional Commits message, lets you review it, then commits and pushes.`,
		Version:           fmt.Sprintf("%s (built at %s)", Version, BuildTime),
		Args:              cobra.NoArgs,
		PersistentPreRunE: initLogging,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handleErrors(generateAndCommit(cmd.Context()), addAll)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

// Seams replaced in tests.
var (
	newGitClient = func() workflow.GitClient {
		return git.NewClient(git.Options{Logger: logger})
	}

	newGenerator = func(cfg *config.Config) (workflow.Generator, error) {
		return llm.NewGenerator(llmOptions(cfg))
	}

	newMenu = func() ui.Menu {
		return ui.NewMenu(inReader(), errWriter())
	}

	runSetup = func(ctx context.Context, path string, base *config.Config) (*config.Config, error) {
		w := setup.NewWizard(newMenu(), errWriter(), path, base)
		w.Logger = logger
		return w.Run(ctx)
	}
)

// ExecuteContext runs the root command. ctx is cancelled on interrupt.
func ExecuteContext(ctx context.Context) error {
	defer closeLog()
	return rootCmd.ExecuteContext(ctx)
}

// RootCmd exposes the command tree for documentation generation.
func RootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Configuration file path (default is $XDG_CONFIG_HOME/aic/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Enable debug logging")
	rootCmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", 0,
		"Timeout in seconds for generation service requests (overrides config)")

	rootCmd.Flags().BoolVarP(&addAll, "all", "a", false,
		"Automatically add all changes to the staging area before committing")
	rootCmd.Flags().BoolVarP(&printOnly, "print-only", "p", false,
		"Print the generated message and exit without committing")
	rootCmd.Flags().StringVarP(&language, "language", "l", "",
		"Language of the generated message, e.g. English or pt-BR (overrides config)")
	rootCmd.Flags().BoolVarP(&autoYes, "yes", "y", false, "Automatically confirm the commit message")
	rootCmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip pre-commit hooks")
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultPath()
}

func initLogging(cmd *cobra.Command, _ []string) error {
	var logFile string
	if path, err := configPath(); err == nil {
		if cfg, err := config.Load(path); err == nil {
			logFile = cfg.LogFile
		}
	}

	l, closer, err := logging.New(logging.Options{
		Verbose: verbose,
		LogFile: logFile,
		Writer:  cmd.ErrOrStderr(),
	})
	logger = l
	logCloser = closer
	if err != nil {
		logger.Warn().Err(err).Str("log_file", logFile).Msg("file logging disabled")
	}
	return nil
}

func closeLog() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

func llmOptions(cfg *config.Config) llm.Options {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return llm.Options{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		APIBase:  cfg.APIBase,
		Timeout:  timeout,
		Logger:   logger,
	}
}

// loadOrSetup loads the configuration and falls back to the setup wizard
// when there is none yet or it has no API key.
func loadOrSetup(ctx context.Context, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		fmt.Fprintln(errWriter(), "No configuration found, starting setup.")
		return runSetup(ctx, path, nil)
	case err != nil:
		return nil, err
	case !cfg.IsConfigured():
		fmt.Fprintln(errWriter(), "Configuration is incomplete, starting setup.")
		return runSetup(ctx, path, cfg)
	}
	return cfg, nil
}

func handleErrors(err error, stagedAll bool) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, git.ErrNoStagedChanges) && !stagedAll {
		return fmt.Errorf("%w\nHint: You can use -a or --all to automatically add all changes to the staging area", err)
	}
	return err
}

func generateAndCommit(ctx context.Context) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	cfg, err := loadOrSetup(ctx, path)
	if err != nil {
		return err
	}

	gitClient := newGitClient()
	if repo, ok := gitClient.(interface{ IsGitRepository(context.Context) bool }); ok && !repo.IsGitRepository(ctx) {
		return errNotRepository
	}

	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	builder, err := prompt.NewBuilder(cfg.PromptTemplate)
	if err != nil {
		return fmt.Errorf("failed to load prompt template: %w", err)
	}

	lang := language
	if lang == "" {
		lang = cfg.Language
	}
	lang = prompt.NormalizeLanguage(lang)

	logger.Debug().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Str("language", lang).
		Str("template", builder.Name()).
		Msg("starting commit workflow")

	opts := workflow.CommitOptions{
		AddAll:    addAll,
		PrintOnly: printOnly,
		NoVerify:  noVerify,
		AutoYes:   autoYes,
		Language:  lang,
		In:        inReader(),
		ErrWriter: errWriter(),
		OutWriter: outWriter(),
	}

	flow := workflow.NewCommitFlow(gitClient, gen, builder, opts)
	flow.SetLogger(logger)
	return flow.Run(ctx)
}

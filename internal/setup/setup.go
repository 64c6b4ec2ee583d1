// Package setup runs the interactive first-run configuration.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/samzong/aic/internal/config"
	"github.com/samzong/aic/internal/llm"
	"github.com/samzong/aic/internal/ui"
)

var ErrSetupAborted = errors.New("setup aborted, no configuration was saved")

// FallbackModels are offered when model discovery fails.
var FallbackModels = map[string][]string{
	llm.ProviderGemini: {"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"},
	llm.ProviderOpenAI: {"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini"},
}

// ModelLister discovers the models available to an API key.
type ModelLister func(ctx context.Context, opts llm.Options) ([]string, error)

type Wizard struct {
	Menu       ui.Menu
	Out        io.Writer
	Base       *config.Config
	ListModels ModelLister
	Save       func(cfg *config.Config) error
	Logger     zerolog.Logger
}

// NewWizard returns a wizard that saves to path. base supplies the current
// values and may be nil.
func NewWizard(menu ui.Menu, out io.Writer, path string, base *config.Config) *Wizard {
	return &Wizard{
		Menu:       menu,
		Out:        out,
		Base:       base,
		ListModels: llm.ListModels,
		Save: func(cfg *config.Config) error {
			return config.Save(path, cfg)
		},
		Logger: zerolog.Nop(),
	}
}

// Run asks for provider, API key and model, then saves the result.
func (w *Wizard) Run(ctx context.Context) (*config.Config, error) {
	cfg := config.Defaults()
	if w.Base != nil {
		copied := *w.Base
		cfg = &copied
	}

	fmt.Fprintln(w.Out, "aic setup - configure your generation service")

	provider, err := w.selectProvider(ctx, cfg.Provider)
	if err != nil {
		return nil, abortErr(err)
	}
	if provider != cfg.Provider {
		cfg.APIBase = ""
		cfg.Model = ""
	}
	cfg.Provider = provider

	apiKey, err := w.promptAPIKey(ctx, cfg.APIKey)
	if err != nil {
		return nil, abortErr(err)
	}
	cfg.APIKey = apiKey

	model, err := w.selectModel(ctx, cfg)
	if err != nil {
		return nil, abortErr(err)
	}
	cfg.Model = model

	if err := w.Save(cfg); err != nil {
		return nil, fmt.Errorf("failed to save configuration: %w", err)
	}
	fmt.Fprintf(w.Out, "Configuration saved. Using %s (%s).\n", cfg.Model, cfg.Provider)
	return cfg, nil
}

func abortErr(err error) error {
	if errors.Is(err, ui.ErrAborted) {
		return ErrSetupAborted
	}
	return err
}

func (w *Wizard) selectProvider(ctx context.Context, current string) (string, error) {
	providers := preferFirst(config.GetSuggestedProviders(), current)
	idx, err := w.Menu.Select(ctx, "Provider", providers)
	if err != nil {
		return "", err
	}
	return providers[idx], nil
}

func (w *Wizard) promptAPIKey(ctx context.Context, current string) (string, error) {
	title := "API key (required)"
	if current != "" {
		title = fmt.Sprintf("API key (leave blank to keep %s)", config.MaskAPIKey(current))
	}

	for {
		key, err := w.Menu.Input(ctx, title, true)
		if err != nil {
			return "", err
		}
		if key != "" {
			return key, nil
		}
		if current != "" {
			return current, nil
		}
		fmt.Fprintln(w.Out, "API key is required.")
	}
}

func (w *Wizard) selectModel(ctx context.Context, cfg *config.Config) (string, error) {
	models := w.discoverModels(ctx, cfg)
	models = preferFirst(models, cfg.Model)

	idx, err := w.Menu.Select(ctx, "Model", models)
	if err != nil {
		return "", err
	}
	return models[idx], nil
}

func (w *Wizard) discoverModels(ctx context.Context, cfg *config.Config) []string {
	sp := ui.NewSpinnerTo(w.Out, "Fetching available models...")
	sp.Start()
	models, err := w.ListModels(ctx, llm.Options{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		APIBase:  cfg.APIBase,
		Timeout:  time.Duration(cfg.Timeout) * time.Second,
		Logger:   w.Logger,
	})
	sp.Stop()

	if err == nil && len(models) > 0 {
		return models
	}

	w.Logger.Warn().Err(err).Str("provider", cfg.Provider).Msg("model discovery failed")
	fmt.Fprintln(w.Out, ui.Warning(fmt.Sprintf("Could not fetch models (%v), showing defaults.", err)))

	fallback := FallbackModels[cfg.Provider]
	if len(fallback) == 0 {
		fallback = FallbackModels[llm.ProviderGemini]
	}
	return slices.Clone(fallback)
}

// preferFirst moves want to the front of items so it becomes the default choice.
func preferFirst(items []string, want string) []string {
	out := slices.Clone(items)
	idx := slices.Index(out, want)
	if idx <= 0 {
		return out
	}
	out = slices.Delete(out, idx, idx+1)
	return slices.Insert(out, 0, want)
}

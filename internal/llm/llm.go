// Package llm talks to the remote text-generation services.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	// MaxOutputTokens and Temperature are fixed for every request. A low
	// temperature keeps the phrasing conventional.
	MaxOutputTokens = 1024
	Temperature     = 0.2

	DefaultTimeout = 30 * time.Second
)

var (
	ErrMissingAPIKey = errors.New("API key not set, run `aic setup` or `aic config set api_key YOUR_API_KEY`")
	ErrEmptyResponse = errors.New("generation service returned no candidates")
	ErrEmptyContent  = errors.New("generation service returned a candidate without text")
	ErrNoModels      = errors.New("no compatible models found")
)

// ServiceError is a non-success HTTP response. Body is the provider's
// response body, unmodified.
type ServiceError struct {
	Model      string
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("API error (%s, status %d): %s", e.Model, e.StatusCode, e.Body)
}

// Request is a single, immutable generation attempt.
type Request struct {
	Prompt          string
	MaxOutputTokens int
	Temperature     float32
}

func NewRequest(prompt string) Request {
	return Request{
		Prompt:          prompt,
		MaxOutputTokens: MaxOutputTokens,
		Temperature:     Temperature,
	}
}

// Generator produces a commit message from a prompt. Implementations hold no
// per-call state and serve one request at a time.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Options struct {
	Provider   string
	APIKey     string
	Model      string
	APIBase    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Provider == "" {
		o.Provider = ProviderGemini
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	o.APIBase = strings.TrimRight(o.APIBase, "/")
	return o
}

// NewGenerator builds the client for the configured provider.
func NewGenerator(opts Options) (Generator, error) {
	opts = opts.withDefaults()
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Model == "" {
		return nil, errors.New("model not set, run `aic setup` or `aic config set model NAME`")
	}

	switch opts.Provider {
	case ProviderGemini:
		return NewGeminiClient(opts), nil
	case ProviderOpenAI:
		return NewOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", opts.Provider)
	}
}

// ListModels returns the models that can generate content, sorted descending.
func ListModels(ctx context.Context, opts Options) ([]string, error) {
	opts = opts.withDefaults()
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	switch opts.Provider {
	case ProviderGemini:
		return NewGeminiClient(opts).ListModels(ctx)
	case ProviderOpenAI:
		return NewOpenAIClient(opts).ListModels(ctx)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", opts.Provider)
	}
}

// firstText applies the response contract shared by all providers.
func firstText(candidates int, text string, hasText bool) (string, error) {
	if candidates == 0 {
		return "", ErrEmptyResponse
	}
	if !hasText {
		return "", ErrEmptyContent
	}
	msg := strings.TrimSpace(text)
	if msg == "" {
		return "", ErrEmptyContent
	}
	return msg, nil
}

package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient serves the openai provider through any chat-completions
// compatible endpoint.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

func NewOpenAIClient(opts Options) *OpenAIClient {
	opts = opts.withDefaults()
	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.APIBase != "" {
		clientConfig.BaseURL = opts.APIBase
	}
	clientConfig.HTTPClient = withErrorBodies(opts.HTTPClient)

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   opts.Model,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx, captured := captureErrorBody(ctx)

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
	})
	c.logger.Debug().
		Str("model", c.model).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("chat completion finished")
	if err != nil {
		return "", c.wrapError(err, captured)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := resp.Choices[0].Message.Content
	return firstText(len(resp.Choices), content, content != "")
}

func (c *OpenAIClient) ListModels(ctx context.Context) ([]string, error) {
	ctx, captured := captureErrorBody(ctx)
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, c.wrapError(err, captured)
	}

	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	return sortModels(names)
}

// wrapError maps client errors onto ServiceError. The body is the one the
// transport recorded, so it reaches the user exactly as the provider sent it.
func (c *OpenAIClient) wrapError(err error, captured *errorBody) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &ServiceError{Model: c.model, StatusCode: apiErr.HTTPStatusCode, Body: captured.or(apiErr.Message)}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &ServiceError{Model: c.model, StatusCode: reqErr.HTTPStatusCode, Body: captured.or(string(reqErr.Body))}
	}

	return fmt.Errorf("failed to call %s: %w", c.model, err)
}

type errorBodyKey struct{}

// errorBody holds the raw body of a failed response for one call.
type errorBody struct {
	data []byte
	set  bool
}

func (b *errorBody) or(fallback string) string {
	if b == nil || !b.set {
		return fallback
	}
	return string(b.data)
}

func captureErrorBody(ctx context.Context) (context.Context, *errorBody) {
	b := &errorBody{}
	return context.WithValue(ctx, errorBodyKey{}, b), b
}

// errorBodyTransport copies non-2xx response bodies into the errorBody
// carried by the request context, then hands the response on unchanged.
type errorBodyTransport struct {
	base http.RoundTripper
}

func (t errorBodyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return resp, err
	}

	b, ok := req.Context().Value(errorBodyKey{}).(*errorBody)
	if !ok {
		return resp, nil
	}

	data, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("failed to read error response: %w", readErr)
	}
	b.data, b.set = data, true
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}

func withErrorBodies(hc *http.Client) *http.Client {
	wrapped := *hc
	base := wrapped.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped.Transport = errorBodyTransport{base: base}
	return &wrapped
}

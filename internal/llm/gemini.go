package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultGeminiBase is the Generative Language API root.
const DefaultGeminiBase = "https://generativelanguage.googleapis.com/v1beta"

const generateContentMethod = "generateContent"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float32 `json:"temperature"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type geminiModel struct {
	Name                       string   `json:"name"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

type geminiModelList struct {
	Models        []geminiModel `json:"models"`
	NextPageToken string        `json:"nextPageToken"`
}

// GeminiClient calls the generateContent endpoint of the Generative Language API.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  zerolog.Logger
}

func NewGeminiClient(opts Options) *GeminiClient {
	opts = opts.withDefaults()
	base := opts.APIBase
	if base == "" {
		base = DefaultGeminiBase
	}
	return &GeminiClient{
		apiKey:  opts.APIKey,
		model:   opts.Model,
		baseURL: base,
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
		logger:  opts.Logger,
	}
}

func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: req.MaxOutputTokens,
			Temperature:     req.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/models/%s:%s", c.baseURL, url.PathEscape(c.model), generateContentMethod)
	respBody, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response from %s: %w", c.model, err)
	}

	if len(parsed.Candidates) == 0 {
		if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w (block reason: %s)", ErrEmptyResponse, parsed.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}

	parts := parsed.Candidates[0].Content.Parts
	text := ""
	if len(parts) > 0 {
		text = parts[0].Text
	}
	return firstText(len(parsed.Candidates), text, len(parts) > 0)
}

// ListModels pages through the models endpoint and keeps the models that
// support generateContent, with the "models/" prefix removed.
func (c *GeminiClient) ListModels(ctx context.Context) ([]string, error) {
	var names []string
	pageToken := ""
	seen := map[string]bool{}
	for {
		endpoint := c.baseURL + "/models"
		if pageToken != "" {
			endpoint += "?pageToken=" + url.QueryEscape(pageToken)
		}

		respBody, err := c.do(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}

		var list geminiModelList
		if err := json.Unmarshal(respBody, &list); err != nil {
			return nil, fmt.Errorf("failed to decode model list: %w", err)
		}

		for _, m := range list.Models {
			if slices.Contains(m.SupportedGenerationMethods, generateContentMethod) {
				names = append(names, strings.TrimPrefix(m.Name, "models/"))
			}
		}

		if list.NextPageToken == "" || seen[list.NextPageToken] {
			break
		}
		seen[list.NextPageToken] = true
		pageToken = list.NextPageToken
	}

	return sortModels(names)
}

func (c *GeminiClient) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", c.model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("model", c.model).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("gemini request finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceError{Model: c.model, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

func sortModels(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, ErrNoModels
	}
	slices.Sort(names)
	slices.Reverse(names)
	return slices.Compact(names), nil
}

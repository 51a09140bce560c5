// Package llm provides the chat-completion adapter.
// This package implements the domain.CompletionClient interface against any
// OpenAI-compatible endpoint using sashabaranov/go-openai.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/reposmith-ai/reposmith/internal/domain"
)

// maxCompletionTokens bounds the model's output per request.
const maxCompletionTokens = 2000

// defaultRequestTimeout bounds a single completion round-trip.
const defaultRequestTimeout = 30 * time.Second

// Logger defines the logging interface for the llm adapter.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// Client implements domain.CompletionClient for a single model profile.
type Client struct {
	api    *openai.Client
	model  string
	logger Logger
}

// Options configures a Client beyond the profile triple.
type Options struct {
	// RequestTimeout bounds each completion request. Zero means the default.
	RequestTimeout time.Duration

	// HTTPClient overrides the transport, primarily for testing.
	HTTPClient *http.Client
}

// NewClient creates a completion client for the given profile triple.
// apiURL may be either the endpoint base (".../v1") or the full
// chat-completions URL; the latter is normalized.
func NewClient(apiKey, model, apiURL string, log Logger, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, domain.ErrMissingAPIKey
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	cfg := openai.DefaultConfig(apiKey)
	if apiURL != "" {
		cfg.BaseURL = normalizeBaseURL(apiURL)
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	} else {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		model:  model,
		logger: log,
	}, nil
}

// Complete sends a single-user-message prompt and returns the response text
// with any surrounding triple-backtick fences stripped.
// Any transport error or missing field surfaces as domain.ErrCompletionFailed.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug(ctx, "sending completion request", map[string]interface{}{
		"model":         c.model,
		"prompt_length": len(prompt),
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxCompletionTokens: maxCompletionTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrCompletionFailed, err)
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn(ctx, "completion returned no choices", map[string]interface{}{
			"model": c.model,
		})
		return "", fmt.Errorf("%w: response contained no choices", domain.ErrCompletionFailed)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	c.logger.Debug(ctx, "received completion response", map[string]interface{}{
		"model":          c.model,
		"finish_reason":  string(resp.Choices[0].FinishReason),
		"content_length": len(content),
	})

	return StripCodeFences(content), nil
}

// StripCodeFences removes a leading triple-backtick fence (with or without a
// language tag) and a trailing closing fence from the given text.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		rest := text[3:]
		// A language tag runs to the end of the first line.
		if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
			firstLine := strings.TrimSpace(rest[:idx])
			if !strings.Contains(firstLine, " ") {
				rest = rest[idx+1:]
			}
		} else {
			rest = ""
		}
		text = rest
	}

	text = strings.TrimSpace(text)
	if strings.HasSuffix(text, "```") {
		text = text[:len(text)-3]
	}

	return strings.TrimSpace(text)
}

// normalizeBaseURL accepts either an endpoint base URL or a full
// chat-completions URL and returns the base go-openai expects.
func normalizeBaseURL(apiURL string) string {
	url := strings.TrimRight(strings.TrimSpace(apiURL), "/")
	url = strings.TrimSuffix(url, "/chat/completions")
	return url
}

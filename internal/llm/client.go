// Package llm obtains a second-opinion scam judgment for a token from a
// chat completion model, with caching, retries and a heuristic fallback
// so the analysis pipeline never waits on or fails with the provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL points at the OpenRouter OpenAI-compatible endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// DefaultModel is the model used when none is configured.
const DefaultModel = "anthropic/claude-3.5-haiku"

const (
	requestTimeout = 15 * time.Second
	maxTokens      = 500
	temperature    = 0.1
)

// ErrEmptyCompletion is returned when the provider responds with no
// choices.
var ErrEmptyCompletion = errors.New("empty completion")

// ChatCompleter produces one completion for a system/user prompt pair.
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client is a ChatCompleter backed by an OpenAI-compatible API.
type Client struct {
	api   *openai.Client
	model string
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL string
	model   string
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithModel overrides the model name.
func WithModel(model string) ClientOption {
	return func(c *clientConfig) {
		c.model = model
	}
}

// NewClient creates a chat completion client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	cfg := clientConfig{baseURL: DefaultBaseURL, model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}

	apiCfg := openai.DefaultConfig(apiKey)
	apiCfg.BaseURL = cfg.baseURL

	return &Client{
		api:   openai.NewClientWithConfig(apiCfg),
		model: cfg.model,
	}
}

var _ ChatCompleter = (*Client)(nil)

// Complete sends one chat completion request and returns the reply text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

package agents

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	apperrors "bess-trader/internal/errors"
	"bess-trader/internal/logging"
)

// LLMClient is the completion surface the stages depend on.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
	// Ready reports whether the client has a credential to work with.
	Ready() error
}

// ClientConfig holds the completion backend settings.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client calls an OpenAI-compatible chat completion API. Pointing BaseURL
// at Perplexity gives the news stage models with live web search.
type Client struct {
	client *openai.Client
	model  string
	apiKey string
}

// NewClient creates a new completion client.
func NewClient(cfg ClientConfig) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Ready returns ErrMissingCredential when no API key is configured.
func (c *Client) Ready() error {
	if strings.TrimSpace(c.apiKey) == "" {
		return apperrors.ErrMissingCredential
	}
	return nil
}

// Complete sends a single-message completion request.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	logging.LogAPICall(logging.FromContext(ctx), "POST", "chat/completions", time.Since(start), err)

	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

// CompleteWithSystem sends a completion request with a system prompt.
func (c *Client) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
	})
	logging.LogAPICall(logging.FromContext(ctx), "POST", "chat/completions", time.Since(start), err)

	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

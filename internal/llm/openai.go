package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

const (
	GroqBaseURL      = "https://api.groq.com/openai/v1"
	DefaultGroqModel = "llama3-70b-8192"
)

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint. Groq
// is the default.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	provider  string
}

type OpenAIConfig struct {
	// Provider labels errors and metrics, e.g. "groq" or "openai".
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	HTTPClient *http.Client
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	config := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		config.BaseURL = strings.TrimRight(base, "/")
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	return &OpenAIClient{
		client:    openai.NewClientWithConfig(config),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		provider:  provider,
	}
}

func (c *OpenAIClient) Provider() string { return c.provider }

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", c.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", c.provider, ErrEmptyOutput)
	}
	out, ok := NormalizeOutput(resp.Choices[0].Message.Content)
	if !ok {
		return "", fmt.Errorf("%s: %w", c.provider, ErrEmptyOutput)
	}
	return out, nil
}

func (c *OpenAIClient) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return fmt.Errorf("%s chat completion: %w", c.provider,
			&StatusError{Provider: c.provider, Code: apiErr.HTTPStatusCode, Message: apiErr.Message})
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return fmt.Errorf("%s chat completion: %w", c.provider,
			&StatusError{Provider: c.provider, Code: reqErr.HTTPStatusCode, Message: reqErr.Error()})
	}
	return fmt.Errorf("%s chat completion: %w", c.provider, err)
}

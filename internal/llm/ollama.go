package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	olla "github.com/ollama/ollama/api"
)

const DefaultOllamaURL = "http://localhost:11434"

// OllamaClient runs non-streaming generations against a local Ollama server.
type OllamaClient struct {
	client    *olla.Client
	model     string
	maxTokens int
}

func NewOllamaClient(baseURL, model string, maxTokens int, hc *http.Client) (*OllamaClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOllamaURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL: %w", err)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &OllamaClient{
		client:    olla.NewClient(parsed, hc),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (c *OllamaClient) Provider() string { return "ollama" }

func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &olla.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: &stream,
	}
	if c.maxTokens > 0 {
		req.Options = map[string]any{"num_predict": c.maxTokens}
	}

	var out strings.Builder
	err := c.client.Generate(ctx, req, func(resp olla.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		var statusErr olla.StatusError
		if errors.As(err, &statusErr) {
			return "", fmt.Errorf("ollama generate: %w",
				&StatusError{Provider: "ollama", Code: statusErr.StatusCode, Message: statusErr.ErrorMessage})
		}
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	text, ok := NormalizeOutput(out.String())
	if !ok {
		return "", fmt.Errorf("ollama: %w", ErrEmptyOutput)
	}
	return text, nil
}

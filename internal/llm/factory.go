package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/tojibot/internal/logging"
)

// Config controls client construction.
type Config struct {
	// Provider is one of auto, groq, openai, ollama, anthropic, http, mock.
	Provider         string
	Model            string
	APIKey           string
	BaseURL          string
	Timeout          time.Duration
	MaxTokens        int
	MaxRetries       int
	FallbackProvider string
	Logger           *zap.Logger
}

// NewClient builds the configured provider client wrapped in retries and, when
// FallbackProvider is set, a fallback to that provider.
func NewClient(cfg Config) (Client, error) {
	logger := logging.OrNop(cfg.Logger)

	primary, err := newProviderClient(cfg.Provider, cfg, logger)
	if err != nil {
		return nil, err
	}

	fb := strings.ToLower(strings.TrimSpace(cfg.FallbackProvider))
	if fb == "" || fb == resolveProvider(cfg.Provider, cfg) {
		return primary, nil
	}
	// The fallback shares model-independent settings only.
	fbCfg := cfg
	fbCfg.Model = ""
	fbCfg.BaseURL = ""
	secondary, err := newProviderClient(fb, fbCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("fallback provider: %w", err)
	}
	return NewFallbackClient(primary, secondary), nil
}

func resolveProvider(provider string, cfg Config) string {
	p := strings.ToLower(strings.TrimSpace(provider))
	if p != "" && p != "auto" {
		return p
	}
	if strings.TrimSpace(cfg.APIKey) != "" {
		return "groq"
	}
	return "mock"
}

func newProviderClient(provider string, cfg Config, logger *zap.Logger) (Client, error) {
	p := resolveProvider(provider, cfg)
	hc := &http.Client{Timeout: cfg.Timeout}

	var c Client
	switch p {
	case "groq":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("groq provider requires LLM_API_KEY or GROQ_API_KEY")
		}
		base := cfg.BaseURL
		if strings.TrimSpace(base) == "" {
			base = GroqBaseURL
		}
		c = NewOpenAIClient(OpenAIConfig{
			Provider:   "groq",
			APIKey:     cfg.APIKey,
			BaseURL:    base,
			Model:      orDefault(cfg.Model, DefaultGroqModel),
			MaxTokens:  cfg.MaxTokens,
			HTTPClient: hc,
		})
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("openai provider requires LLM_API_KEY")
		}
		c = NewOpenAIClient(OpenAIConfig{
			Provider:   "openai",
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      orDefault(cfg.Model, "gpt-4o-mini"),
			MaxTokens:  cfg.MaxTokens,
			HTTPClient: hc,
		})
	case "ollama":
		oc, err := NewOllamaClient(cfg.BaseURL, orDefault(cfg.Model, "llama3"), cfg.MaxTokens, hc)
		if err != nil {
			return nil, err
		}
		c = oc
	case "anthropic":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("anthropic provider requires LLM_API_KEY")
		}
		c = NewAnthropicClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens, hc)
	case "http":
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, errors.New("http provider requires LLM_BASE_URL")
		}
		c = NewHTTPClient(cfg.BaseURL, cfg.APIKey, hc)
	case "mock":
		logger.Warn("using mock completion client; replies are canned")
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", provider)
	}

	if cfg.MaxRetries > 0 {
		return NewRetryClient(c, cfg.MaxRetries, logger), nil
	}
	return c, nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

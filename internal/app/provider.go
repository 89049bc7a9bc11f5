package app

import (
	"strings"

	"github.com/ent0n29/tojibot/internal/config"
)

// ProviderInfo describes the completion backend chosen at startup.
type ProviderInfo struct {
	Provider string
	Fallback string
	Detail   string
}

func resolveProvider(cfg config.Config) ProviderInfo {
	provider := strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if provider == "" {
		provider = "auto"
	}
	info := ProviderInfo{Fallback: strings.ToLower(strings.TrimSpace(cfg.LLMFallbackProvider))}

	if provider == "auto" {
		if strings.TrimSpace(cfg.LLMAPIKey) == "" {
			info.Provider = "mock"
			info.Detail = "no API key set; using canned replies"
			return info
		}
		provider = "groq"
	}
	info.Provider = provider

	model := strings.TrimSpace(cfg.LLMModel)
	switch {
	case model != "":
		info.Detail = "model " + model
	case provider == "mock":
		info.Detail = "canned replies"
	default:
		info.Detail = "provider default model"
	}
	if info.Fallback == info.Provider {
		info.Fallback = ""
	}
	return info
}

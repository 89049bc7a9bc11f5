package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const dependencyCheckTimeout = 2 * time.Second

type statusCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type statusResponse struct {
	Persona      string        `json:"persona"`
	LLMProvider  string        `json:"llm_provider"`
	FactsDriver  string        `json:"facts_driver"`
	MemoryDriver string        `json:"memory_driver"`
	Checks       []statusCheck `json:"checks"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	provider := normalizedDriver(s.cfg.LLMProvider)
	checks := make([]statusCheck, 0, 8)
	checks = append(checks, s.llmChecks(provider)...)
	checks = append(checks, s.memoryChecks()...)
	checks = append(checks, s.checkDependencies(r.Context())...)

	respondJSON(w, http.StatusOK, statusResponse{
		Persona:      s.cfg.Persona.Name,
		LLMProvider:  provider,
		FactsDriver:  normalizedDriver(s.cfg.FactsDriver),
		MemoryDriver: normalizedDriver(s.cfg.MemoryDriver),
		Checks:       checks,
	})
}

func (s *Server) llmChecks(provider string) []statusCheck {
	hasKey := strings.TrimSpace(s.cfg.LLMAPIKey) != ""
	switch provider {
	case "mock":
		return []statusCheck{{
			ID:     "llm_provider",
			Status: "warn",
			Label:  "Completion backend is mock",
			Detail: "Replies are canned; no model is called.",
			Fix:    "Set GROQ_API_KEY or LLM_PROVIDER.",
		}}
	case "auto":
		if !hasKey {
			return []statusCheck{{
				ID:     "llm_provider",
				Status: "warn",
				Label:  "Completion backend",
				Detail: "no API key; falling back to mock",
				Fix:    "Set GROQ_API_KEY to use Groq.",
			}}
		}
		return []statusCheck{{ID: "llm_provider", Status: "ok", Label: "Completion backend", Detail: "groq"}}
	case "groq", "openai", "anthropic":
		if !hasKey {
			return []statusCheck{{
				ID:     "llm_api_key",
				Status: "error",
				Label:  "Completion API key",
				Detail: "LLM_API_KEY is not set",
				Fix:    "Set LLM_API_KEY (or GROQ_API_KEY for groq).",
			}}
		}
		return []statusCheck{{ID: "llm_provider", Status: "ok", Label: "Completion backend", Detail: provider}}
	default:
		return []statusCheck{{ID: "llm_provider", Status: "ok", Label: "Completion backend", Detail: provider}}
	}
}

func (s *Server) memoryChecks() []statusCheck {
	persistent := strings.TrimSpace(s.cfg.DatabaseURL) != "" ||
		strings.TrimSpace(s.cfg.RedisAddr) != "" ||
		strings.TrimSpace(s.cfg.MemorySQLitePath) != ""
	driver := normalizedDriver(s.cfg.MemoryDriver)
	if driver == "memory" || (driver == "auto" && !persistent) {
		return []statusCheck{{
			ID:     "memory_store",
			Status: "warn",
			Label:  "Conversation memory",
			Detail: "in-memory only",
			Fix:    "Set DATABASE_URL, REDIS_ADDR or MEMORY_SQLITE_PATH to keep history across restarts.",
		}}
	}
	return nil
}

// checkDependencies pings every backend with a short timeout.
func (s *Server) checkDependencies(ctx context.Context) []statusCheck {
	out := make([]statusCheck, 0, len(s.deps))
	for _, dep := range s.deps {
		if dep.Check == nil {
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, dependencyCheckTimeout)
		err := dep.Check(checkCtx)
		cancel()

		c := statusCheck{ID: dep.Name, Status: "ok", Label: dep.Name, Detail: dep.Backend}
		if err != nil {
			c.Status = "error"
			c.Detail = dep.Backend + ": " + err.Error()
		}
		out = append(out, c)
	}
	return out
}

func normalizedDriver(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "auto"
	}
	return v
}

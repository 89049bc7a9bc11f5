package app

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ent0n29/tojibot/internal/bot"
	"github.com/ent0n29/tojibot/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		MetricsNamespace: "test_app",
		FactsDriver:      "memory",
		FactsLimit:       3,
		MemoryDriver:     "memory",
		LLMProvider:      "mock",
		LLMMaxTokens:     64,
		Persona:          config.DefaultPersona(),
	}
}

func TestBuildWiresInMemoryService(t *testing.T) {
	res, err := Build(t.Context(), testConfig(), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() {
		if err := res.Cleanup(); err != nil {
			t.Errorf("Cleanup() error = %v", err)
		}
	})

	if res.Facts.Backend() != "memory" || res.Memory.Backend() != "memory" {
		t.Fatalf("backends = %s/%s, want memory/memory", res.Facts.Backend(), res.Memory.Backend())
	}
	if res.LLM.Provider != "mock" {
		t.Fatalf("LLM.Provider = %q, want mock", res.LLM.Provider)
	}

	reply := res.Router.HandleMessage(t.Context(), bot.Message{UserID: "u1", Content: "!toji train with me"})
	if !reply.Handled || !strings.Contains(reply.Text, "train with me") {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if got := res.History.GetOrCreate(t.Context(), "u1").Len(); got != 2 {
		t.Fatalf("transcript length = %d, want 2", got)
	}
}

func TestBuildPersistsToSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.FactsDriver = "sqlite"
	cfg.FactsSQLitePath = filepath.Join(dir, "facts.db")
	cfg.MemoryDriver = "sqlite"
	cfg.MemorySQLitePath = filepath.Join(dir, "memory.db")

	res, err := Build(t.Context(), cfg, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer res.Cleanup()

	if res.Facts.Backend() != "sqlite" || res.Memory.Backend() != "sqlite" {
		t.Fatalf("backends = %s/%s, want sqlite/sqlite", res.Facts.Backend(), res.Memory.Backend())
	}
	res.Responder.Respond(t.Context(), "u1", "who are you")

	_, found, err := res.Memory.Load(t.Context(), "u1")
	if err != nil || !found {
		t.Fatalf("Load() found=%v err=%v, want stored record", found, err)
	}
}

func TestBuildRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.MemoryDriver = "cassandra"
	if _, err := Build(t.Context(), cfg, nil); err == nil {
		t.Fatalf("Build() expected error for unknown memory driver")
	}
}

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want ProviderInfo
	}{
		{name: "auto without key", cfg: config.Config{LLMProvider: "auto"}, want: ProviderInfo{Provider: "mock", Detail: "no API key set; using canned replies"}},
		{name: "auto with key", cfg: config.Config{LLMProvider: "auto", LLMAPIKey: "k"}, want: ProviderInfo{Provider: "groq", Detail: "provider default model"}},
		{name: "explicit model", cfg: config.Config{LLMProvider: "Ollama", LLMModel: "llama3"}, want: ProviderInfo{Provider: "ollama", Detail: "model llama3"}},
		{name: "fallback", cfg: config.Config{LLMProvider: "groq", LLMFallbackProvider: "ollama"}, want: ProviderInfo{Provider: "groq", Fallback: "ollama", Detail: "provider default model"}},
		{name: "same fallback dropped", cfg: config.Config{LLMProvider: "groq", LLMFallbackProvider: "groq"}, want: ProviderInfo{Provider: "groq", Detail: "provider default model"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveProvider(tc.cfg); got != tc.want {
				t.Fatalf("resolveProvider() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

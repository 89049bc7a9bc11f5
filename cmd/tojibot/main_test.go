package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ent0n29/tojibot/internal/app"
	"github.com/ent0n29/tojibot/internal/config"
)

func TestChatWSURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://127.0.0.1:8080", want: "ws://127.0.0.1:8080/v1/chat/ws"},
		{in: "https://bot.example.com/base/", want: "wss://bot.example.com/base/v1/chat/ws"},
		{in: "ftp://bot.example.com", wantErr: true},
		{in: "http://", wantErr: true},
	}
	for _, tc := range tests {
		got, err := chatWSURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("chatWSURL(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("chatWSURL(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestParsePerfTexts(t *testing.T) {
	got, err := parsePerfTexts("")
	if err != nil || len(got) != len(defaultPerfTexts) {
		t.Fatalf("default texts = %v, %v", got, err)
	}
	got, err = parsePerfTexts(" a | |b ")
	if err != nil || len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("parsed texts = %v, %v", got, err)
	}
	if _, err := parsePerfTexts(" | "); err == nil {
		t.Fatalf("expected error for empty texts")
	}
}

func TestSummarize(t *testing.T) {
	res := summarize([]float64{40, 10, 30, 20}, 1)
	if res.Turns != 4 || res.Errors != 1 {
		t.Fatalf("counts = %+v", res)
	}
	if res.P50MS != 20 || res.P95MS != 40 || res.MaxMS != 40 {
		t.Fatalf("percentiles = %+v", res)
	}
	if empty := summarize(nil, 0); empty.Turns != 0 || empty.MaxMS != 0 {
		t.Fatalf("empty summary = %+v", empty)
	}
}

func setTestEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "REDIS_ADDR", "FACTS_DRIVER", "FACTS_SQLITE_PATH",
		"MEMORY_DRIVER", "MEMORY_SQLITE_PATH", "LLM_PROVIDER", "LLM_API_KEY",
		"GROQ_API_KEY", "LLM_FALLBACK_PROVIDER", "PERSONA_FILE", "LOG_FORMAT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestFactsLoadCommandSkipsDuplicates(t *testing.T) {
	dir := t.TempDir()
	setTestEnv(t, map[string]string{
		"FACTS_DRIVER":      "sqlite",
		"FACTS_SQLITE_PATH": filepath.Join(dir, "facts.db"),
	})
	sheet := filepath.Join(dir, "toji_facts.txt")
	content := "Toji Fushiguro is a sorcerer killer with no cursed energy.\n\n" +
		"He wields the Inverted Spear of Heaven in battle.\n"
	if err := os.WriteFile(sheet, []byte(content), 0o644); err != nil {
		t.Fatalf("write sheet: %v", err)
	}

	run := func() map[string]int {
		t.Helper()
		var out bytes.Buffer
		root := newRootCmd()
		root.SetOut(&out)
		root.SetArgs([]string{"facts", "load", "--file", sheet, "--delay", "0s"})
		if err := root.ExecuteContext(t.Context()); err != nil {
			t.Fatalf("facts load error = %v", err)
		}
		var report map[string]int
		if err := json.Unmarshal(out.Bytes(), &report); err != nil {
			t.Fatalf("decode report %q: %v", out.String(), err)
		}
		return report
	}

	first := run()
	if first["inserted"] != 2 || first["skipped"] != 0 || first["total"] != 2 {
		t.Fatalf("first run = %v", first)
	}
	second := run()
	if second["inserted"] != 0 || second["skipped"] != 2 || second["total"] != 2 {
		t.Fatalf("second run = %v", second)
	}
}

func TestFactsLoadCommandMissingFile(t *testing.T) {
	setTestEnv(t, map[string]string{"FACTS_DRIVER": "memory"})
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"facts", "load", "--file", filepath.Join(t.TempDir(), "nope.txt")})
	if err := root.ExecuteContext(t.Context()); err == nil {
		t.Fatalf("expected error for missing facts file")
	}
}

func TestCheckCommand(t *testing.T) {
	setTestEnv(t, map[string]string{
		"FACTS_DRIVER":  "memory",
		"MEMORY_DRIVER": "memory",
		"LLM_PROVIDER":  "mock",
	})
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"check", "--probe"})
	if err := root.ExecuteContext(t.Context()); err != nil {
		t.Fatalf("check error = %v\n%s", err, out.String())
	}
	for _, want := range []string{"ok   fact_store", "ok   memory_store", "ok   llm_provider"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("check output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunPerfAgainstServer(t *testing.T) {
	cfg := config.Config{
		MetricsNamespace: "test_perf",
		FactsDriver:      "memory",
		FactsLimit:       3,
		MemoryDriver:     "memory",
		LLMProvider:      "mock",
		LLMMaxTokens:     64,
		Persona:          config.DefaultPersona(),
	}
	built, err := app.Build(t.Context(), cfg, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer built.Cleanup()
	ts := httptest.NewServer(built.API.Router())
	defer ts.Close()

	var out bytes.Buffer
	res, err := runPerf(t.Context(), perfOptions{
		baseURL:     ts.URL,
		userID:      "perf",
		turns:       3,
		turnTimeout: 5 * time.Second,
		texts:       defaultPerfTexts,
		verbose:     true,
	}, &out)
	if err != nil {
		t.Fatalf("runPerf() error = %v", err)
	}
	if res.Turns != 3 || res.Errors != 0 {
		t.Fatalf("perf result = %+v", res)
	}
	if strings.Count(out.String(), "perf: turn") != 3 {
		t.Fatalf("verbose output = %q", out.String())
	}
	if err := printServerLatency(t.Context(), ts.URL, &out); err != nil {
		t.Fatalf("printServerLatency() error = %v", err)
	}
}

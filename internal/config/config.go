package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the bot service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	LogLevel  string
	LogFormat string

	DatabaseURL  string
	StoreTimeout time.Duration

	FactsDriver     string
	FactsSQLitePath string
	FactsLimit      int

	MemoryDriver     string
	MemorySQLitePath string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	LLMProvider         string
	LLMModel            string
	LLMAPIKey           string
	LLMBaseURL          string
	LLMTimeout          time.Duration
	LLMMaxTokens        int
	LLMMaxRetries       int
	LLMFallbackProvider string

	PersonaFile string
	Persona     Persona
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "tojibot"),
		AllowAnyOrigin:   false,
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),
		FactsDriver:      envOrDefault("FACTS_DRIVER", "auto"),
		FactsSQLitePath:  stringsTrimSpace("FACTS_SQLITE_PATH"),
		FactsLimit:       3,
		MemoryDriver:     envOrDefault("MEMORY_DRIVER", "auto"),
		MemorySQLitePath: stringsTrimSpace("MEMORY_SQLITE_PATH"),
		RedisAddr:        stringsTrimSpace("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisKeyPrefix:   envOrDefault("REDIS_KEY_PREFIX", "tojibot:memory"),
		// Groq speaks the OpenAI wire protocol; it is the historical default backend.
		LLMProvider:         envOrDefault("LLM_PROVIDER", "auto"),
		LLMModel:            stringsTrimSpace("LLM_MODEL"),
		LLMAPIKey:           stringsTrimSpace("LLM_API_KEY"),
		LLMBaseURL:          stringsTrimSpace("LLM_BASE_URL"),
		LLMMaxTokens:        1024,
		LLMMaxRetries:       2,
		LLMFallbackProvider: stringsTrimSpace("LLM_FALLBACK_PROVIDER"),
		PersonaFile:         stringsTrimSpace("PERSONA_FILE"),
		ShutdownTimeout:     15 * time.Second,
		StoreTimeout:        5 * time.Second,
		LLMTimeout:          60 * time.Second,
		Persona:             DefaultPersona(),
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = stringsTrimSpace("GROQ_API_KEY")
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.StoreTimeout, err = durationFromEnv("STORE_TIMEOUT", cfg.StoreTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTimeout, err = durationFromEnv("LLM_TIMEOUT", cfg.LLMTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.FactsLimit, err = intFromEnv("FACTS_LIMIT", cfg.FactsLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.RedisDB, err = intFromEnv("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMMaxTokens, err = intFromEnv("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMMaxRetries, err = intFromEnv("LLM_MAX_RETRIES", cfg.LLMMaxRetries)
	if err != nil {
		return Config{}, err
	}

	if cfg.PersonaFile != "" {
		p, err := LoadPersona(cfg.PersonaFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Persona = p
	}

	if cfg.FactsLimit <= 0 {
		return Config{}, fmt.Errorf("FACTS_LIMIT must be positive")
	}
	if cfg.LLMMaxTokens <= 0 {
		return Config{}, fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if cfg.LLMMaxRetries < 0 {
		return Config{}, fmt.Errorf("LLM_MAX_RETRIES must be >= 0")
	}
	if cfg.StoreTimeout < 0 || cfg.LLMTimeout < 0 {
		return Config{}, fmt.Errorf("STORE_TIMEOUT and LLM_TIMEOUT must be >= 0")
	}
	if cfg.RedisDB < 0 {
		return Config{}, fmt.Errorf("REDIS_DB must be >= 0")
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}

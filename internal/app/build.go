package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ent0n29/tojibot/internal/bot"
	"github.com/ent0n29/tojibot/internal/config"
	"github.com/ent0n29/tojibot/internal/facts"
	"github.com/ent0n29/tojibot/internal/httpapi"
	"github.com/ent0n29/tojibot/internal/llm"
	"github.com/ent0n29/tojibot/internal/logging"
	"github.com/ent0n29/tojibot/internal/memory"
	"github.com/ent0n29/tojibot/internal/observability"
	"github.com/ent0n29/tojibot/internal/pipeline"
	"github.com/ent0n29/tojibot/internal/prompt"
)

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Router    *bot.Router
	Responder *pipeline.Responder
	Facts     facts.Store
	Memory    memory.Store
	History   *memory.Cache
	Metrics   *observability.Metrics
	LLM       ProviderInfo

	// Cleanup should be called on shutdown to release the storage backends.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	logger = logging.OrNop(logger)
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	factStore, err := OpenFactStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	memoryStore, err := memory.NewStore(ctx, memory.Config{
		Driver:      cfg.MemoryDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.MemorySQLitePath,
		Redis: memory.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		},
	})
	if err != nil {
		_ = factStore.Close()
		return nil, fmt.Errorf("memory store init failed: %w", err)
	}

	closeStores := func() error {
		return errors.Join(factStore.Close(), memoryStore.Close())
	}

	info := resolveProvider(cfg)
	client, err := llm.NewClient(llm.Config{
		Provider:         cfg.LLMProvider,
		Model:            cfg.LLMModel,
		APIKey:           cfg.LLMAPIKey,
		BaseURL:          cfg.LLMBaseURL,
		Timeout:          cfg.LLMTimeout,
		MaxTokens:        cfg.LLMMaxTokens,
		MaxRetries:       cfg.LLMMaxRetries,
		FallbackProvider: cfg.LLMFallbackProvider,
		Logger:           logger,
	})
	if err != nil {
		_ = closeStores()
		return nil, fmt.Errorf("llm client init failed: %w", err)
	}

	accessor := facts.NewAccessor(factStore,
		facts.WithLimit(cfg.FactsLimit),
		facts.WithTimeout(cfg.StoreTimeout),
		facts.WithLogger(logger),
		facts.WithMetrics(metrics),
	)
	history := memory.NewCache(memoryStore,
		memory.WithTimeout(cfg.StoreTimeout),
		memory.WithLogger(logger),
		memory.WithMetrics(metrics),
	)

	responder, err := pipeline.NewResponder(pipeline.Options{
		Facts:         accessor,
		History:       history,
		Assembler:     prompt.New(cfg.Persona.Name),
		Client:        client,
		FallbackReply: cfg.Persona.FallbackReply,
		Logger:        logger,
		Metrics:       metrics,
	})
	if err != nil {
		_ = closeStores()
		return nil, err
	}

	router := bot.NewRouter(responder, cfg.Persona, logger, metrics)
	deps := []httpapi.Dependency{
		{
			Name:    "fact_store",
			Backend: factStore.Backend(),
			Check: func(ctx context.Context) error {
				_, err := factStore.Count(ctx)
				return err
			},
		},
		{
			Name:    "memory_store",
			Backend: memoryStore.Backend(),
			Check:   memoryStore.Ping,
		},
	}
	api := httpapi.New(cfg, router, deps, metrics, logger)

	logger.Info("tojibot assembled",
		zap.String("persona", cfg.Persona.Name),
		zap.String("llm_provider", info.Provider),
		zap.String("facts_backend", factStore.Backend()),
		zap.String("memory_backend", memoryStore.Backend()),
	)

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Router:    router,
		Responder: responder,
		Facts:     factStore,
		Memory:    memoryStore,
		History:   history,
		Metrics:   metrics,
		LLM:       info,
		Cleanup:   closeStores,
	}, nil
}

// OpenFactStore opens the configured fact store on its own, for tooling that
// does not need the rest of the service.
func OpenFactStore(ctx context.Context, cfg config.Config) (facts.Store, error) {
	store, err := facts.NewStore(ctx, facts.Config{
		Driver:      cfg.FactsDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.FactsSQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("fact store init failed: %w", err)
	}
	return store, nil
}

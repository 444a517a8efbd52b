// Package app wires configuration into the running service graph shared by
// the HTTP server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/policy-pundit/internal/adapters/driven/ai"
	"github.com/custodia-labs/policy-pundit/internal/adapters/driven/evaluator"
	"github.com/custodia-labs/policy-pundit/internal/adapters/driven/memory"
	"github.com/custodia-labs/policy-pundit/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/policy-pundit/internal/adapters/driven/redis"
	"github.com/custodia-labs/policy-pundit/internal/adapters/driven/tfidf"
	"github.com/custodia-labs/policy-pundit/internal/chunker"
	"github.com/custodia-labs/policy-pundit/internal/config"
	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driving"
	"github.com/custodia-labs/policy-pundit/internal/core/services"
	"github.com/custodia-labs/policy-pundit/internal/parsers"
	"github.com/custodia-labs/policy-pundit/internal/runtime"
)

// llmProbeTimeout bounds the connectivity check used by the auto evaluator.
const llmProbeTimeout = 10 * time.Second

// App holds the wired services.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Services *runtime.Services
	Lock     driven.DistributedLock
	Corpus   driving.CorpusService
	Query    driving.QueryService

	closers []func() error
}

// New builds the service graph from cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// ===== Upload lock (Redis, then PostgreSQL advisory locks, then in-process) =====
	lockBackend := "memory"
	switch {
	case cfg.RedisURL != "":
		client, err := redisadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.Lock = redisadapter.NewLock(client)
		lockBackend = "redis"
	case cfg.DatabaseURL != "":
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.Lock = postgres.NewAdvisoryLock(db)
		lockBackend = "postgres"
	default:
		a.Lock = memory.NewLock()
	}

	// ===== Runtime configuration =====
	parserRegistry := parsers.DefaultRegistry()
	runtimeConfig := domain.NewRuntimeConfig(lockBackend)
	runtimeConfig.SetSupportedFormats(parserRegistry.List())

	newLLMEvaluator := func(llm driven.LLMService) driven.Evaluator {
		return evaluator.NewLLM(llm, cfg.LLM.Timeout, logger)
	}
	requested := domain.EvaluatorMode(cfg.Evaluator)
	a.Services = runtime.NewServices(runtimeConfig, requested, evaluator.NewRules(), newLLMEvaluator)
	a.closers = append(a.closers, a.Services.Close)

	if requested != domain.EvaluatorRules {
		if err := a.connectLLM(ctx, requested); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	// ===== Corpus pipeline =====
	store, err := memory.NewCorpusStore(cfg.CorpusCapacity)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Corpus = services.NewCorpusService(services.CorpusDeps{
		Parsers: parserRegistry,
		Chunker: chunker.NewChunker(chunker.ChunkConfig{
			MaxTokens: cfg.Chunker.MaxTokens,
			Overlap:   cfg.Chunker.Overlap,
		}),
		Indexer:  tfidf.NewBuilder(tfidf.Config{MaxFeatures: cfg.MaxFeatures}),
		Store:    store,
		Lock:     a.Lock,
		Services: a.Services,
		Logger:   logger,
	})
	a.Query = services.NewQueryService(store, a.Services, cfg.TopK, logger)

	logger.Info("runtime config",
		"lock_backend", runtimeConfig.LockBackend,
		"llm", runtimeConfig.LLMAvailable(),
		"evaluator_mode", runtimeConfig.EvaluatorMode(),
		"formats", runtimeConfig.SupportedFormats(),
	)
	return a, nil
}

// connectLLM creates the configured LLM service. In auto mode an unreachable
// provider leaves the rule-based evaluator in effect.
func (a *App) connectLLM(ctx context.Context, requested domain.EvaluatorMode) error {
	llm, err := ai.NewFactory().CreateLLMService(driven.LLMSettings{
		Provider: a.Config.LLM.Provider,
		Model:    a.Config.LLM.Model,
		APIKey:   a.Config.LLM.APIKey,
		BaseURL:  a.Config.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("create llm service: %w", err)
	}
	if llm == nil {
		a.Logger.Warn("LLM not configured", "provider", a.Config.LLM.Provider, "evaluator", requested)
		return nil
	}

	if requested == domain.EvaluatorLLM {
		a.Services.SetLLMService(llm)
		return nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, llmProbeTimeout)
	defer cancel()
	if err := a.Services.ValidateAndSetLLM(probeCtx, llm); err != nil {
		a.Logger.Warn("LLM unreachable, using rule-based evaluator",
			"provider", a.Config.LLM.Provider,
			"model", llm.Model(),
			"error", err,
		)
	}
	return nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fenchurch-labs/corep-assistant/internal/analyze"
	"github.com/fenchurch-labs/corep-assistant/internal/audit"
	"github.com/fenchurch-labs/corep-assistant/internal/model"
	"github.com/fenchurch-labs/corep-assistant/internal/render"
	"github.com/fenchurch-labs/corep-assistant/internal/resilience"
	"github.com/fenchurch-labs/corep-assistant/internal/retrieval"
	"github.com/fenchurch-labs/corep-assistant/internal/store"
	"github.com/fenchurch-labs/corep-assistant/internal/validate"
	anthropicpkg "github.com/fenchurch-labs/corep-assistant/pkg/anthropic"
)

// analyzerEnv holds the initialized store, clients, and pipeline shared by
// the analyze and serve commands.
type analyzerEnv struct {
	Store    store.Store
	Registry *model.TemplateRegistry
	Searcher *retrieval.Searcher
	Analyzer *analyze.Analyzer
	Renderer *render.Renderer
}

// Close releases resources held by the environment.
func (ae *analyzerEnv) Close() {
	if ae.Store != nil {
		_ = ae.Store.Close()
	}
}

// initAnalyzer validates config for the given mode, sets up the store and
// API clients, and builds the analysis pipeline. Callers should defer
// env.Close().
func initAnalyzer(ctx context.Context, mode string) (*analyzerEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	registry, err := model.DefaultTemplateRegistry()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	embedder := initEmbedder()
	searcher := retrieval.NewSearcher(st, embedder)
	engine := validate.NewEngine(validate.FromConfig(cfg.Validation.Epsilon, cfg.Validation.UpperBound))

	analyzer := analyze.New(
		registry,
		searcher,
		anthropicpkg.NewClient(cfg.Anthropic.Key),
		engine,
		audit.NewRecorder(st),
		analyze.Config{
			Model:       cfg.Anthropic.Model,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			Temperature: cfg.Anthropic.Temperature,
			// The embedder reports its own model so mock runs audit as mock.
			EmbeddingModel: embedder.Model(),
			Environment:    cfg.Environment,
			Retry: resilience.FromRetryConfig(
				cfg.Resilience.Retry.MaxAttempts,
				cfg.Resilience.Retry.InitialBackoffMS,
				cfg.Resilience.Retry.MaxBackoffMS,
				cfg.Resilience.Retry.Multiplier,
				cfg.Resilience.Retry.JitterFraction,
			),
			Breaker: resilience.FromCircuitConfig(
				cfg.Resilience.Breaker.FailureThreshold,
				cfg.Resilience.Breaker.ResetTimeoutSecs,
			),
		},
	)

	zap.L().Info("analyzer ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("model", cfg.Anthropic.Model),
		zap.String("embedding_provider", cfg.Embeddings.Provider),
	)

	return &analyzerEnv{
		Store:    st,
		Registry: registry,
		Searcher: searcher,
		Analyzer: analyzer,
		Renderer: render.NewRenderer(registry),
	}, nil
}

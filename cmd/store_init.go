package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/fenchurch-labs/corep-assistant/internal/store"
	"github.com/fenchurch-labs/corep-assistant/pkg/jina"
)

// initStore opens the configured store backend. Callers own Close.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "corep.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEmbedder builds the configured embedding client. The mock provider
// backs offline runs and CI.
func initEmbedder() jina.Client {
	if cfg.Embeddings.Provider == "mock" {
		return jina.NewMock(cfg.Embeddings.Dimensions)
	}

	opts := []jina.Option{
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithModel(cfg.Embeddings.Model),
		jina.WithDimensions(cfg.Embeddings.Dimensions),
	}
	if cfg.Embeddings.RateLimit > 0 {
		opts = append(opts, jina.WithRateLimit(cfg.Embeddings.RateLimit, 1))
	}
	return jina.NewClient(cfg.Jina.Key, opts...)
}

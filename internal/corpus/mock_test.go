package corpus

import (
	"context"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
	"github.com/fenchurch-labs/corep-assistant/internal/store"
	"github.com/fenchurch-labs/corep-assistant/pkg/jina"
)

// mockStore implements store.Store for testing.
type mockStore struct {
	stats    store.DocumentStats
	statsErr error

	deletedTemplates []string
	upserted         []model.Document
	upsertErr        error
}

func (m *mockStore) UpsertDocuments(_ context.Context, docs []model.Document) (int, error) {
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	m.upserted = append(m.upserted, docs...)
	return len(docs), nil
}

func (m *mockStore) DeleteDocuments(_ context.Context, template string) (int, error) {
	m.deletedTemplates = append(m.deletedTemplates, template)
	deleted := m.stats.Total
	m.stats = store.DocumentStats{}
	return deleted, nil
}

func (m *mockStore) CountDocuments(_ context.Context, _ string) (store.DocumentStats, error) {
	if m.statsErr != nil {
		return store.DocumentStats{}, m.statsErr
	}
	return m.stats, nil
}

func (m *mockStore) SemanticSearch(_ context.Context, _ string, _ []float32, _ int) ([]store.ScoredDocument, error) {
	return nil, nil
}

func (m *mockStore) KeywordSearch(_ context.Context, _ string, _ []string, _ int) ([]model.Document, error) {
	return nil, nil
}

func (m *mockStore) CreateAnalysis(_ context.Context, _ *model.Analysis) error { return nil }

func (m *mockStore) GetAnalysis(_ context.Context, _ string) (*model.Analysis, error) {
	return nil, nil
}

func (m *mockStore) ListAnalyses(_ context.Context, _ store.AnalysisFilter) ([]model.Analysis, error) {
	return nil, nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }

func (m *mockStore) Close() error { return nil }

// mockEmbedder implements jina.Client and records batch sizes.
type mockEmbedder struct {
	err        error
	batchSizes []int
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string, _ ...jina.EmbedOption) ([][]float32, error) {
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (m *mockEmbedder) Model() string { return jina.MockModel }

func (m *mockEmbedder) TokensUsed() int64 { return 0 }

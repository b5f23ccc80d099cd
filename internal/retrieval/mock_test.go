package retrieval

import (
	"context"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
	"github.com/fenchurch-labs/corep-assistant/internal/store"
	"github.com/fenchurch-labs/corep-assistant/pkg/jina"
)

type semanticCall struct {
	template  string
	embedding []float32
	limit     int
}

type keywordCall struct {
	template string
	terms    []string
	limit    int
}

// mockStore implements store.Store for testing.
type mockStore struct {
	semanticResults []store.ScoredDocument
	semanticErr     error
	keywordResults  []model.Document
	keywordErr      error

	semanticCalls []semanticCall
	keywordCalls  []keywordCall
}

func (m *mockStore) SemanticSearch(_ context.Context, template string, embedding []float32, limit int) ([]store.ScoredDocument, error) {
	m.semanticCalls = append(m.semanticCalls, semanticCall{template, embedding, limit})
	if m.semanticErr != nil {
		return nil, m.semanticErr
	}
	return m.semanticResults, nil
}

func (m *mockStore) KeywordSearch(_ context.Context, template string, terms []string, limit int) ([]model.Document, error) {
	m.keywordCalls = append(m.keywordCalls, keywordCall{template, terms, limit})
	if m.keywordErr != nil {
		return nil, m.keywordErr
	}
	return m.keywordResults, nil
}

func (m *mockStore) UpsertDocuments(_ context.Context, _ []model.Document) (int, error) {
	return 0, nil
}

func (m *mockStore) DeleteDocuments(_ context.Context, _ string) (int, error) {
	return 0, nil
}

func (m *mockStore) CountDocuments(_ context.Context, _ string) (store.DocumentStats, error) {
	return store.DocumentStats{}, nil
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

// mockEmbedder implements jina.Client for testing.
type mockEmbedder struct {
	vectors [][]float32
	err     error
	calls   [][]string
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string, _ ...jina.EmbedOption) ([][]float32, error) {
	m.calls = append(m.calls, texts)
	if m.err != nil {
		return nil, m.err
	}
	if m.vectors != nil {
		return m.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (m *mockEmbedder) Model() string { return jina.MockModel }

func (m *mockEmbedder) TokensUsed() int64 { return 0 }

package audit

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

type mockStore struct {
	created []*model.Analysis
	err     error
}

func (m *mockStore) CreateAnalysis(_ context.Context, analysis *model.Analysis) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, analysis)
	return nil
}

func TestNewID_Format(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	id := NewID(ts)

	assert.Regexp(t, regexp.MustCompile(`^20250101_093000_[0-9a-f]{8}$`), id)
}

func TestNewID_UniqueWithinSecond(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	assert.NotEqual(t, NewID(ts), NewID(ts))
}

func TestNewID_UsesUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BST", 3600)
	ts := time.Date(2025, 6, 1, 10, 0, 0, 0, loc)

	assert.Regexp(t, regexp.MustCompile(`^20250601_090000_`), NewID(ts))
}

func TestRecord_AssemblesAndPersists(t *testing.T) {
	t.Parallel()

	st := &mockStore{}
	r := NewRecorder(st)

	createdAt := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	entry := Entry{
		Query: model.AnalysisQuery{
			Question: "How should we report CET1?",
			Scenario: "Bank holds £500m ordinary shares.",
			Template: "C_01_00",
		},
		Result: model.AnalysisResult{
			TemplateID: "C_01_00",
			Fields:     []model.FieldRecord{{Row: model.RowCET1, Status: model.StatusPopulated}},
			Warnings:   []model.ValidationWarning{},
		},
		ModelWarnings: []string{"AT1 not mentioned in scenario"},
		Paragraphs: []model.RetrievedParagraph{
			{ParagraphID: "CRR_26", RelevanceScore: 0.9, SearchType: model.SearchSemantic},
			{ParagraphID: "CRR_50", RelevanceScore: 0.5, SearchType: model.SearchKeyword},
		},
		System: model.SystemInfo{
			LLMModel:       "claude-sonnet-4-5-20250929",
			EmbeddingModel: "jina-embeddings-v3",
			Environment:    "test",
		},
		Metadata: model.AnalysisMetadata{
			DurationMS:   1200,
			InputTokens:  4000,
			OutputTokens: 800,
		},
		CreatedAt: createdAt,
	}

	got, err := r.Record(context.Background(), entry)
	require.NoError(t, err)
	require.Len(t, st.created, 1)
	assert.Equal(t, got, st.created[0])

	assert.Regexp(t, regexp.MustCompile(`^20250101_093000_`), got.ID)
	assert.Equal(t, createdAt, got.CreatedAt)
	assert.Equal(t, entry.Query, got.Query)
	assert.Equal(t, entry.Result, got.Response)
	assert.Equal(t, entry.ModelWarnings, got.ModelWarnings)
	assert.Equal(t, 2, got.Retrieval.ParagraphCount)
	assert.Equal(t, entry.Paragraphs, got.Retrieval.Paragraphs)
	assert.Equal(t, entry.System, got.System)
	assert.Equal(t, entry.Metadata, got.Metadata)
}

func TestRecord_DefaultsCreatedAt(t *testing.T) {
	t.Parallel()

	r := NewRecorder(&mockStore{})

	got, err := r.Record(context.Background(), Entry{})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), got.CreatedAt, 5*time.Second)
}

func TestRecord_StoreFailureReturnsRecord(t *testing.T) {
	t.Parallel()

	r := NewRecorder(&mockStore{err: eris.New("db down")})

	got, err := r.Record(context.Background(), Entry{
		Query: model.AnalysisQuery{Template: "C_01_00"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit: persist record")
	require.NotNil(t, got)
	assert.NotEmpty(t, got.ID)
}

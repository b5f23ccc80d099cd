package retrieval

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
	"github.com/fenchurch-labs/corep-assistant/internal/store"
)

func corpusDoc(id, content string) model.Document {
	return model.Document{
		ID:          id,
		Source:      model.SourcePRARulebook,
		Template:    "C_01_00",
		Section:     "Own Funds",
		ParagraphID: id,
		Content:     content,
	}
}

func TestSearch_MergesSemanticAndKeyword(t *testing.T) {
	t.Parallel()

	st := &mockStore{
		semanticResults: []store.ScoredDocument{
			{Document: corpusDoc("CRR_26", "CET1 items include retained earnings"), Distance: 0.1},
			{Document: corpusDoc("CRR_62", "Tier 2 items comprise subordinated loans"), Distance: 0.4},
		},
		keywordResults: []model.Document{
			corpusDoc("CRR_62", "Tier 2 items comprise subordinated loans"),
			corpusDoc("CRR_50", "CET1 capital consists of CET1 items after adjustments"),
		},
	}
	s := NewSearcher(st, &mockEmbedder{})

	got, err := s.Search(context.Background(), "what counts as CET1?", "C_01_00", 5)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Semantic-only: 1 - 0.1.
	assert.Equal(t, "CRR_26", got[0].ParagraphID)
	assert.InDelta(t, 0.9, got[0].RelevanceScore, 1e-9)
	assert.Equal(t, model.SearchSemantic, got[0].SearchType)

	// Found by both: (1 - 0.4) + 0.2.
	assert.Equal(t, "CRR_62", got[1].ParagraphID)
	assert.InDelta(t, 0.8, got[1].RelevanceScore, 1e-9)
	assert.Equal(t, model.SearchHybrid, got[1].SearchType)

	// Keyword-only: flat 0.5.
	assert.Equal(t, "CRR_50", got[2].ParagraphID)
	assert.InDelta(t, 0.5, got[2].RelevanceScore, 1e-9)
	assert.Equal(t, model.SearchKeyword, got[2].SearchType)
}

func TestSearch_TopKTruncates(t *testing.T) {
	t.Parallel()

	st := &mockStore{
		semanticResults: []store.ScoredDocument{
			{Document: corpusDoc("CRR_26", "a"), Distance: 0.1},
			{Document: corpusDoc("CRR_50", "b"), Distance: 0.2},
		},
		keywordResults: []model.Document{corpusDoc("CRR_62", "c")},
	}
	s := NewSearcher(st, &mockEmbedder{})

	got, err := s.Search(context.Background(), "own funds", "C_01_00", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CRR_26", got[0].ParagraphID)
	assert.Equal(t, "CRR_50", got[1].ParagraphID)
}

func TestSearch_DefaultTopK(t *testing.T) {
	t.Parallel()

	st := &mockStore{}
	s := NewSearcher(st, &mockEmbedder{})

	_, err := s.Search(context.Background(), "own funds", "C_01_00", 0)
	require.NoError(t, err)

	require.Len(t, st.semanticCalls, 1)
	assert.Equal(t, DefaultTopK, st.semanticCalls[0].limit)
	require.Len(t, st.keywordCalls, 1)
	assert.Equal(t, DefaultTopK, st.keywordCalls[0].limit)
}

func TestSearch_EmbedFailureFallsBackToKeyword(t *testing.T) {
	t.Parallel()

	st := &mockStore{
		keywordResults: []model.Document{corpusDoc("CRR_26", "retained earnings")},
	}
	s := NewSearcher(st, &mockEmbedder{err: eris.New("embeddings down")})

	got, err := s.Search(context.Background(), "retained earnings", "C_01_00", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.SearchKeyword, got[0].SearchType)
	assert.InDelta(t, 0.5, got[0].RelevanceScore, 1e-9)
	assert.Empty(t, st.semanticCalls)
}

func TestSearch_VectorStoreFailureFallsBackToKeyword(t *testing.T) {
	t.Parallel()

	st := &mockStore{
		semanticErr:    eris.New("vector index unavailable"),
		keywordResults: []model.Document{corpusDoc("CRR_26", "retained earnings")},
	}
	s := NewSearcher(st, &mockEmbedder{})

	got, err := s.Search(context.Background(), "retained earnings", "C_01_00", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.SearchKeyword, got[0].SearchType)
}

func TestSearch_KeywordFailureIsFatal(t *testing.T) {
	t.Parallel()

	st := &mockStore{keywordErr: eris.New("db down")}
	s := NewSearcher(st, &mockEmbedder{})

	_, err := s.Search(context.Background(), "own funds", "C_01_00", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval: keyword search")
}

func TestSearch_LowercasesQueryTerms(t *testing.T) {
	t.Parallel()

	st := &mockStore{}
	s := NewSearcher(st, &mockEmbedder{})

	_, err := s.Search(context.Background(), "Retained EARNINGS  and\tCET1", "C_01_00", 5)
	require.NoError(t, err)

	require.Len(t, st.keywordCalls, 1)
	assert.Equal(t, []string{"retained", "earnings", "and", "cet1"}, st.keywordCalls[0].terms)
}

func TestSearch_EmbedsQueryOnce(t *testing.T) {
	t.Parallel()

	st := &mockStore{}
	emb := &mockEmbedder{}
	s := NewSearcher(st, emb)

	_, err := s.Search(context.Background(), "deductions from own funds", "C_01_00", 5)
	require.NoError(t, err)

	require.Len(t, emb.calls, 1)
	assert.Equal(t, []string{"deductions from own funds"}, emb.calls[0])
	require.Len(t, st.semanticCalls, 1)
	assert.Equal(t, []float32{1, 0}, st.semanticCalls[0].embedding)
	assert.Equal(t, "C_01_00", st.semanticCalls[0].template)
}

func TestSearch_EmptyCorpus(t *testing.T) {
	t.Parallel()

	s := NewSearcher(&mockStore{}, &mockEmbedder{})

	got, err := s.Search(context.Background(), "own funds", "C_01_00", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMerge_TieKeepsSemanticFirst(t *testing.T) {
	t.Parallel()

	// Distance 0.5 scores exactly the keyword default.
	semantic := []store.ScoredDocument{
		{Document: corpusDoc("CRR_26", "a"), Distance: 0.5},
	}
	keyword := []model.Document{corpusDoc("CRR_62", "b")}

	got := merge(semantic, keyword, 5)
	require.Len(t, got, 2)
	assert.Equal(t, "CRR_26", got[0].ParagraphID)
	assert.Equal(t, "CRR_62", got[1].ParagraphID)
}

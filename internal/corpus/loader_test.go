package corpus

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
	"github.com/fenchurch-labs/corep-assistant/internal/store"
	"github.com/fenchurch-labs/corep-assistant/pkg/jina"
)

func writePack(t *testing.T, docs []packDocument) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pack.json")
	data, err := json.Marshal(pack{Documents: docs})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func samplePack(t *testing.T) string {
	t.Helper()
	return writePack(t, []packDocument{
		{Source: "PRA_Rulebook", Template: "C_01_00", Section: "Own Funds", ParagraphID: "CRR_26", Content: "CET1 items include retained earnings."},
		{Source: "PRA_Rulebook", Template: "C_01_00", Section: "Own Funds", ParagraphID: "CRR_62", Content: "Tier 2 items comprise subordinated loans."},
		{Source: "EBA_COREP", Template: "C_01_00", Section: "Annex II", ParagraphID: "C01_ROW_010", Content: "Row 010 reports total own funds."},
	})
}

func TestLoad_FreshCorpus(t *testing.T) {
	t.Parallel()

	st := &mockStore{}
	l := NewLoader(st, jina.NewMock(8))

	got, err := l.Load(context.Background(), LoadOptions{File: samplePack(t)})
	require.NoError(t, err)

	assert.Equal(t, 3, got.Loaded)
	assert.Equal(t, 3, got.Embedded)
	assert.False(t, got.Skipped)
	assert.Empty(t, st.deletedTemplates)

	require.Len(t, st.upserted, 3)
	first := st.upserted[0]
	assert.Equal(t, model.SourcePRARulebook, first.Source)
	assert.Equal(t, "C_01_00", first.Template)
	assert.Equal(t, "Own Funds", first.Section)
	assert.Equal(t, "CRR_26", first.ParagraphID)
	assert.Len(t, first.Embedding, 8)
}

func TestLoad_SkipsWhenPopulated(t *testing.T) {
	t.Parallel()

	st := &mockStore{stats: store.DocumentStats{Total: 12, Embedded: 12}}
	emb := &mockEmbedder{}
	l := NewLoader(st, emb)

	got, err := l.Load(context.Background(), LoadOptions{File: samplePack(t)})
	require.NoError(t, err)

	assert.True(t, got.Skipped)
	assert.Equal(t, 12, got.Existing)
	assert.Empty(t, st.deletedTemplates)
	assert.Empty(t, st.upserted)
	assert.Empty(t, emb.batchSizes)
}

func TestLoad_ForceClearsAndReloads(t *testing.T) {
	t.Parallel()

	st := &mockStore{stats: store.DocumentStats{Total: 12, Embedded: 12}}
	l := NewLoader(st, jina.NewMock(8))

	got, err := l.Load(context.Background(), LoadOptions{File: samplePack(t), Force: true})
	require.NoError(t, err)

	assert.False(t, got.Skipped)
	assert.Equal(t, 3, got.Loaded)
	assert.Equal(t, []string{"C_01_00"}, st.deletedTemplates)
	assert.Len(t, st.upserted, 3)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	l := NewLoader(&mockStore{}, jina.NewMock(8))

	_, err := l.Load(context.Background(), LoadOptions{File: filepath.Join(t.TempDir(), "absent.json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read pack")
}

func TestLoad_EmptyPack(t *testing.T) {
	t.Parallel()

	l := NewLoader(&mockStore{}, jina.NewMock(8))

	_, err := l.Load(context.Background(), LoadOptions{File: writePack(t, nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no documents")
}

func TestLoad_MalformedPack(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"documents": [`), 0o644))

	l := NewLoader(&mockStore{}, jina.NewMock(8))

	_, err := l.Load(context.Background(), LoadOptions{File: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse pack")
}

func TestLoad_EmbedFailure(t *testing.T) {
	t.Parallel()

	st := &mockStore{}
	l := NewLoader(st, &mockEmbedder{err: eris.New("embeddings down")})

	_, err := l.Load(context.Background(), LoadOptions{File: samplePack(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed batch")
	assert.Empty(t, st.upserted)
}

func TestLoad_BatchesByBatchSize(t *testing.T) {
	t.Parallel()

	emb := &mockEmbedder{}
	l := NewLoader(&mockStore{}, emb)

	docs := make([]packDocument, 5)
	for i := range docs {
		docs[i] = packDocument{
			Source:      "PRA_Rulebook",
			Template:    "C_01_00",
			Section:     "Own Funds",
			ParagraphID: string(rune('a' + i)),
			Content:     "paragraph",
		}
	}

	// Concurrency 1 keeps batch order deterministic.
	got, err := l.Load(context.Background(), LoadOptions{
		File:        writePack(t, docs),
		BatchSize:   2,
		Concurrency: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, got.Loaded)
	assert.Equal(t, []int{2, 2, 1}, emb.batchSizes)
}

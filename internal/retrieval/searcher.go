// Package retrieval ranks regulatory paragraphs against a scenario query by
// combining vector similarity with keyword matching.
package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
	"github.com/fenchurch-labs/corep-assistant/internal/store"
	"github.com/fenchurch-labs/corep-assistant/pkg/jina"
)

const (
	// DefaultTopK bounds the result count when the caller does not pick one.
	DefaultTopK = 5

	// keywordScore is the relevance assigned to keyword-only matches.
	keywordScore = 0.5
	// hybridBoost is added when both paths surface the same paragraph.
	hybridBoost = 0.2
)

// Searcher runs hybrid search over the regulatory corpus: vector similarity
// for meaning, keyword matching for exact regulatory vocabulary.
type Searcher struct {
	store    store.Store
	embedder jina.Client
}

// NewSearcher creates a Searcher over the given store and embedding client.
func NewSearcher(st store.Store, embedder jina.Client) *Searcher {
	return &Searcher{store: st, embedder: embedder}
}

// Search embeds the query, runs both retrieval paths against the template's
// corpus slice and merges them into a single ranking. A paragraph found by
// vector search scores 1 minus its cosine distance; a keyword-only match
// scores 0.5; a paragraph found by both gets a 0.2 boost and is marked
// hybrid. Results are sorted by score and truncated to topK.
//
// Embedding or vector-search failures degrade to keyword-only results rather
// than failing the whole search.
func (s *Searcher) Search(ctx context.Context, query, template string, topK int) ([]model.RetrievedParagraph, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	log := zap.L().With(zap.String("template", template))

	semantic, err := s.semantic(ctx, query, template, topK)
	if err != nil {
		log.Warn("semantic search unavailable, keyword only", zap.Error(err))
		semantic = nil
	}

	keyword, err := s.store.KeywordSearch(ctx, template, terms(query), topK)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: keyword search")
	}

	results := merge(semantic, keyword, topK)
	log.Debug("hybrid search complete",
		zap.Int("semantic", len(semantic)),
		zap.Int("keyword", len(keyword)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

func (s *Searcher) semantic(ctx context.Context, query, template string, limit int) ([]store.ScoredDocument, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query}, jina.WithTask(jina.TaskQuery))
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: embed query")
	}
	if len(vectors) == 0 {
		return nil, eris.New("retrieval: embedder returned no vector")
	}
	docs, err := s.store.SemanticSearch(ctx, template, vectors[0], limit)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: semantic search")
	}
	return docs, nil
}

// merge deduplicates the two result sets by document ID. Ties sort stably,
// so equal-scored semantic results keep their distance order.
func merge(semantic []store.ScoredDocument, keyword []model.Document, topK int) []model.RetrievedParagraph {
	byID := make(map[string]int, len(semantic))
	out := make([]model.RetrievedParagraph, 0, len(semantic)+len(keyword))

	for _, sd := range semantic {
		byID[sd.Document.ID] = len(out)
		out = append(out, model.RetrievedParagraph{
			Source:         sd.Document.Source,
			Section:        sd.Document.Section,
			ParagraphID:    sd.Document.ParagraphID,
			Content:        sd.Document.Content,
			RelevanceScore: 1.0 - sd.Distance,
			SearchType:     model.SearchSemantic,
		})
	}

	for _, doc := range keyword {
		if i, ok := byID[doc.ID]; ok {
			out[i].RelevanceScore += hybridBoost
			out[i].SearchType = model.SearchHybrid
			continue
		}
		byID[doc.ID] = len(out)
		out = append(out, model.RetrievedParagraph{
			Source:         doc.Source,
			Section:        doc.Section,
			ParagraphID:    doc.ParagraphID,
			Content:        doc.Content,
			RelevanceScore: keywordScore,
			SearchType:     model.SearchKeyword,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// terms lowercases and whitespace-splits a query for keyword matching.
func terms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

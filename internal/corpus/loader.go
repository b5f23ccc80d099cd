// Package corpus loads the regulatory document pack into the store and
// generates embeddings for vector search.
package corpus

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
	"github.com/fenchurch-labs/corep-assistant/internal/store"
	"github.com/fenchurch-labs/corep-assistant/pkg/jina"
)

// DefaultPackFile is the repo-relative path of the bundled document pack.
const DefaultPackFile = "data/pra_corep_c01.json"

// LoadOptions configures a corpus load.
type LoadOptions struct {
	File        string // document pack path (default DefaultPackFile)
	Template    string // template whose corpus is replaced (default C_01_00)
	Force       bool   // replace existing documents instead of skipping
	BatchSize   int    // texts per embedding request (default 16)
	Concurrency int    // parallel embedding requests (default 4)
}

// LoadResult summarizes a corpus load.
type LoadResult struct {
	Loaded   int  `json:"loaded"`
	Embedded int  `json:"embedded"`
	Skipped  bool `json:"skipped"`
	Existing int  `json:"existing,omitempty"`
}

// Loader populates the corpus tables from a JSON document pack.
type Loader struct {
	store    store.Store
	embedder jina.Client
}

// NewLoader creates a Loader over the given store and embedding client.
func NewLoader(st store.Store, embedder jina.Client) *Loader {
	return &Loader{store: st, embedder: embedder}
}

// Load reads the document pack, embeds every paragraph and upserts the
// result. When the template already has documents the load is skipped
// unless Force is set, in which case the existing corpus is cleared first.
func (l *Loader) Load(ctx context.Context, opts LoadOptions) (*LoadResult, error) {
	if opts.File == "" {
		opts.File = DefaultPackFile
	}
	if opts.Template == "" {
		opts.Template = model.TemplateC0100
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 16
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	log := zap.L().With(
		zap.String("template", opts.Template),
		zap.String("file", opts.File),
	)

	docs, err := readPack(opts.File)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, eris.Errorf("corpus: no documents in %s", opts.File)
	}
	log.Info("loaded document pack", zap.Int("documents", len(docs)))

	stats, err := l.store.CountDocuments(ctx, opts.Template)
	if err != nil {
		return nil, eris.Wrap(err, "corpus: count documents")
	}
	if stats.Total > 0 {
		if !opts.Force {
			log.Warn("corpus already loaded, skipping", zap.Int("existing", stats.Total))
			return &LoadResult{Skipped: true, Existing: stats.Total}, nil
		}
		deleted, err := l.store.DeleteDocuments(ctx, opts.Template)
		if err != nil {
			return nil, eris.Wrap(err, "corpus: clear documents")
		}
		log.Info("cleared existing documents", zap.Int("deleted", deleted))
	}

	embedded, err := l.embedAll(ctx, docs, opts)
	if err != nil {
		return nil, err
	}

	loaded, err := l.store.UpsertDocuments(ctx, docs)
	if err != nil {
		return nil, eris.Wrap(err, "corpus: upsert documents")
	}

	log.Info("corpus loaded",
		zap.Int("documents", loaded),
		zap.Int("embedded", embedded),
		zap.String("embedding_model", l.embedder.Model()),
	)
	return &LoadResult{Loaded: loaded, Embedded: embedded}, nil
}

// embedAll fills in document embeddings batch by batch. Batches run in
// parallel; each goroutine writes a disjoint slice of docs.
func (l *Loader) embedAll(ctx context.Context, docs []model.Document, opts LoadOptions) (int, error) {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for start := 0; start < len(docs); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(docs))
		batch := docs[start:end]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, d := range batch {
				texts[i] = d.Content
			}
			vectors, err := l.embedder.Embed(gCtx, texts, jina.WithTask(jina.TaskPassage))
			if err != nil {
				return eris.Wrap(err, "corpus: embed batch")
			}
			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	embedded := 0
	for _, d := range docs {
		if len(d.Embedding) > 0 {
			embedded++
		}
	}
	return embedded, nil
}

type pack struct {
	Documents []packDocument `json:"documents"`
}

type packDocument struct {
	Source      string `json:"source"`
	Template    string `json:"template"`
	Section     string `json:"section"`
	ParagraphID string `json:"paragraph_id"`
	Content     string `json:"content"`
}

func readPack(path string) ([]model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: read pack %s", path)
	}
	var p pack
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "corpus: parse pack %s", path)
	}
	docs := make([]model.Document, 0, len(p.Documents))
	for _, d := range p.Documents {
		docs = append(docs, model.Document{
			Source:      model.DocumentSource(d.Source),
			Template:    d.Template,
			Section:     d.Section,
			ParagraphID: d.ParagraphID,
			Content:     d.Content,
		})
	}
	return docs, nil
}

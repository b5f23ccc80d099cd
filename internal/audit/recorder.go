// Package audit assembles and persists the analysis audit trail. Every
// analyze run produces one record holding the inputs, the retrieved context,
// the populated template and the run metadata.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

// Store persists new analysis records.
type Store interface {
	CreateAnalysis(ctx context.Context, analysis *model.Analysis) error
}

// NewID derives an audit identifier from the record timestamp plus a short
// random suffix, e.g. 20250101_093000_1a2b3c4d. The suffix keeps IDs unique
// when two analyses land in the same second.
func NewID(t time.Time) string {
	return fmt.Sprintf("%s_%s", t.UTC().Format("20060102_150405"), uuid.New().String()[:8])
}

// Entry carries everything a finished analysis produced.
type Entry struct {
	Query         model.AnalysisQuery
	Result        model.AnalysisResult
	ModelWarnings []string
	Paragraphs    []model.RetrievedParagraph
	System        model.SystemInfo
	Metadata      model.AnalysisMetadata
	CreatedAt     time.Time // zero means now
}

// Recorder assembles Analysis records and writes them to the store.
type Recorder struct {
	store Store
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(st Store) *Recorder {
	return &Recorder{store: st}
}

// Record builds the audit record for an entry and persists it. The assembled
// record is returned even when persistence fails, so callers can still
// surface the analysis.
func (r *Recorder) Record(ctx context.Context, entry Entry) (*model.Analysis, error) {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	analysis := &model.Analysis{
		ID:            NewID(createdAt),
		CreatedAt:     createdAt,
		Query:         entry.Query,
		Response:      entry.Result,
		ModelWarnings: entry.ModelWarnings,
		Retrieval: model.RetrievalAudit{
			ParagraphCount: len(entry.Paragraphs),
			Paragraphs:     entry.Paragraphs,
		},
		System:   entry.System,
		Metadata: entry.Metadata,
	}

	if err := r.store.CreateAnalysis(ctx, analysis); err != nil {
		return analysis, eris.Wrap(err, "audit: persist record")
	}

	zap.L().Info("audit record created",
		zap.String("log_id", analysis.ID),
		zap.String("template", analysis.Query.Template),
	)
	return analysis, nil
}

// Package store persists the regulatory corpus and the analysis audit trail.
// Postgres (with pgvector) is the primary backend; SQLite backs local,
// zero-infrastructure runs.
package store

import (
	"context"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

// AnalysisFilter specifies criteria for listing audit records.
type AnalysisFilter struct {
	Template string `json:"template,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// ScoredDocument pairs a corpus document with its cosine distance to a query
// embedding. Lower distance means more similar.
type ScoredDocument struct {
	Document model.Document `json:"document"`
	Distance float64        `json:"distance"`
}

// DocumentStats summarizes corpus coverage for a template.
type DocumentStats struct {
	Total    int `json:"total"`
	Embedded int `json:"embedded"`
}

// Store defines the persistence interface shared by the Postgres and SQLite
// backends.
type Store interface {
	// Regulatory corpus
	UpsertDocuments(ctx context.Context, docs []model.Document) (int, error)
	DeleteDocuments(ctx context.Context, template string) (int, error)
	CountDocuments(ctx context.Context, template string) (DocumentStats, error)
	SemanticSearch(ctx context.Context, template string, embedding []float32, limit int) ([]ScoredDocument, error)
	KeywordSearch(ctx context.Context, template string, terms []string, limit int) ([]model.Document, error)

	// Audit trail
	CreateAnalysis(ctx context.Context, analysis *model.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

package model

import "time"

// DocumentSource identifies the regulatory corpus a paragraph came from.
type DocumentSource string

const (
	SourcePRARulebook DocumentSource = "PRA_Rulebook"
	SourceEBACOREP    DocumentSource = "EBA_COREP"
)

// SearchType records which retrieval path surfaced a paragraph.
type SearchType string

const (
	SearchSemantic SearchType = "semantic"
	SearchKeyword  SearchType = "keyword"
	SearchHybrid   SearchType = "hybrid"
)

// Document is one regulatory paragraph in the corpus. Embedding is empty
// until the corpus loader backfills it.
type Document struct {
	ID          string         `json:"id"`
	Source      DocumentSource `json:"source"`
	Template    string         `json:"template"`
	Section     string         `json:"section"`
	ParagraphID string         `json:"paragraph_id"`
	Content     string         `json:"content"`
	Embedding   []float32      `json:"-"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
}

// RetrievedParagraph is a corpus document scored against a query.
type RetrievedParagraph struct {
	Source         DocumentSource `json:"source"`
	Section        string         `json:"section"`
	ParagraphID    string         `json:"paragraph_id"`
	Content        string         `json:"content"`
	RelevanceScore float64        `json:"relevance_score"`
	SearchType     SearchType     `json:"search_type"`
}

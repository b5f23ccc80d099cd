package model

import "time"

// AnalysisQuery captures the inputs of an analyze run.
type AnalysisQuery struct {
	Question string `json:"question"`
	Scenario string `json:"scenario"`
	Template string `json:"template"`
}

// RetrievalAudit records what the retriever handed to the LLM.
type RetrievalAudit struct {
	ParagraphCount int                  `json:"paragraphs_count"`
	Paragraphs     []RetrievedParagraph `json:"paragraphs"`
}

// SystemInfo pins the model and environment an analysis ran against.
type SystemInfo struct {
	LLMModel       string `json:"llm_model"`
	EmbeddingModel string `json:"embedding_model"`
	Environment    string `json:"environment"`
}

// AnalysisMetadata holds run timing and spend.
type AnalysisMetadata struct {
	DurationMS       int64   `json:"duration_ms"`
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// Analysis is the full audit record of one analyze run: inputs, retrieval
// context, the populated template, and run metadata. Stored verbatim so a
// reviewer can reconstruct exactly what the system saw and produced.
// ModelWarnings are findings the model volunteered; they are audit context
// only and never join the deterministic warning list.
type Analysis struct {
	ID            string           `json:"log_id"`
	CreatedAt     time.Time        `json:"timestamp"`
	Query         AnalysisQuery    `json:"query"`
	Response      AnalysisResult   `json:"response"`
	ModelWarnings []string         `json:"model_warnings,omitempty"`
	Retrieval     RetrievalAudit   `json:"retrieval"`
	System        SystemInfo       `json:"system"`
	Metadata      AnalysisMetadata `json:"metadata"`
}

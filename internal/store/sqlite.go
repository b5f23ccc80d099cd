package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Embeddings are kept
// as JSON arrays and ranked in Go; the driver is pure Go, so the vector
// extension is not available, and the corpus is small enough that a full scan
// per query is fine.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS regulatory_documents (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	template     TEXT NOT NULL,
	section      TEXT NOT NULL,
	paragraph_id TEXT NOT NULL,
	content      TEXT NOT NULL,
	embedding    TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_regdocs_source_template_para
	ON regulatory_documents(source, template, paragraph_id);
CREATE INDEX IF NOT EXISTS idx_regdocs_template ON regulatory_documents(template);

CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	template   TEXT NOT NULL,
	question   TEXT NOT NULL,
	record     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analyses_template ON analyses(template);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertDocuments(ctx context.Context, docs []model.Document) (int, error) {
	count := 0
	for _, doc := range docs {
		id := doc.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		var embedding sql.NullString
		if len(doc.Embedding) > 0 {
			data, err := json.Marshal(doc.Embedding)
			if err != nil {
				return count, eris.Wrap(err, "sqlite: marshal embedding")
			}
			embedding = sql.NullString{String: string(data), Valid: true}
		}

		_, err := s.db.ExecContext(ctx,
			`INSERT INTO regulatory_documents (id, source, template, section, paragraph_id, content, embedding, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (source, template, paragraph_id)
			 DO UPDATE SET section = excluded.section, content = excluded.content, embedding = excluded.embedding`,
			id, string(doc.Source), doc.Template, doc.Section, doc.ParagraphID, doc.Content, embedding, createdAt,
		)
		if err != nil {
			return count, eris.Wrapf(err, "sqlite: upsert document %s", doc.ParagraphID)
		}
		count++
	}
	return count, nil
}

func (s *SQLiteStore) DeleteDocuments(ctx context.Context, template string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM regulatory_documents WHERE template = ?`,
		template,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete documents for %s", template)
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) CountDocuments(ctx context.Context, template string) (DocumentStats, error) {
	var stats DocumentStats
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*), count(embedding) FROM regulatory_documents WHERE template = ?`,
		template,
	).Scan(&stats.Total, &stats.Embedded)
	if err != nil {
		return stats, eris.Wrapf(err, "sqlite: count documents for %s", template)
	}
	return stats, nil
}

// SemanticSearch loads the template's embedded documents and ranks them by
// cosine distance in Go, mirroring pgvector's ordering.
func (s *SQLiteStore) SemanticSearch(ctx context.Context, template string, embedding []float32, limit int) ([]ScoredDocument, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, template, section, paragraph_id, content, embedding
		 FROM regulatory_documents WHERE template = ? AND embedding IS NOT NULL`,
		template,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: semantic search")
	}
	defer rows.Close()

	var results []ScoredDocument
	for rows.Next() {
		var d model.Document
		var embeddingJSON string
		if err := rows.Scan(&d.ID, &d.Source, &d.Template, &d.Section, &d.ParagraphID, &d.Content, &embeddingJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		if err := json.Unmarshal([]byte(embeddingJSON), &d.Embedding); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal embedding for %s", d.ParagraphID)
		}
		doc := d
		doc.Embedding = nil
		results = append(results, ScoredDocument{
			Document: doc,
			Distance: CosineDistance(embedding, d.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: semantic search iterate")
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// KeywordSearch matches documents containing any of the given terms. SQLite's
// LIKE is case-insensitive for ASCII, which covers the corpus.
func (s *SQLiteStore) KeywordSearch(ctx context.Context, template string, terms []string, limit int) ([]model.Document, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	var clauses []string
	args := []any{template}
	for _, term := range terms {
		clauses = append(clauses, `content LIKE ?`)
		args = append(args, "%"+term+"%")
	}
	query := `SELECT id, source, template, section, paragraph_id, content FROM regulatory_documents
		 WHERE template = ? AND (` + strings.Join(clauses, ` OR `) + `) LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: keyword search")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.Source, &d.Template, &d.Section, &d.ParagraphID, &d.Content); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan keyword result")
		}
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: keyword search iterate")
}

func (s *SQLiteStore) CreateAnalysis(ctx context.Context, analysis *model.Analysis) error {
	record, err := json.Marshal(analysis)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, template, question, record, created_at) VALUES (?, ?, ?, ?, ?)`,
		analysis.ID, analysis.Query.Template, analysis.Query.Question, string(record), analysis.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert analysis %s", analysis.ID)
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	var record string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM analyses WHERE id = ?`,
		id,
	).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}

	var analysis model.Analysis
	if err := json.Unmarshal([]byte(record), &analysis); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
	}
	return &analysis, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT record FROM analyses WHERE 1=1`
	var args []any

	if filter.Template != "" {
		query += ` AND template = ?`
		args = append(args, filter.Template)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis record")
		}
		var a model.Analysis
		if err := json.Unmarshal([]byte(record), &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal analysis record")
		}
		analyses = append(analyses, a)
	}
	return analyses, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

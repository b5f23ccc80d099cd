package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/fenchurch-labs/corep-assistant/internal/db"
	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

// PostgresStore implements Store using pgxpool with the pgvector extension.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements holds the queries every request path touches, keyed by
// statement name.
var preparedStatements = map[string]string{
	"upsert_document": `INSERT INTO regulatory_documents (id, source, template, section, paragraph_id, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::vector, $8)
		ON CONFLICT (source, template, paragraph_id)
		DO UPDATE SET section = EXCLUDED.section, content = EXCLUDED.content, embedding = EXCLUDED.embedding`,
	"semantic_search": `SELECT id, source, template, section, paragraph_id, content, embedding <=> $2::vector AS distance
		FROM regulatory_documents
		WHERE template = $1 AND embedding IS NOT NULL
		ORDER BY distance
		LIMIT $3`,
	"insert_analysis": `INSERT INTO analyses (id, template, question, record, created_at) VALUES ($1, $2, $3, $4, $5)`,
	"get_analysis":    `SELECT record FROM analyses WHERE id = $1`,
}

// Pool sizing defaults, overridable through PoolConfig.
const (
	defaultMaxConns = 10
	defaultMinConns = 2
	connMaxLifetime = 30 * time.Minute
	connMaxIdleTime = 5 * time.Minute
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = defaultMaxConns
	pgxCfg.MinConns = defaultMinConns
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = connMaxLifetime
	pgxCfg.MaxConnIdleTime = connMaxIdleTime
	pgxCfg.AfterConnect = prepareStatements

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// prepareStatements warms the hot-path statements on each new connection.
func prepareStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range preparedStatements {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return eris.Wrapf(err, "postgres: prepare %s", name)
		}
	}
	return nil
}

// NewPostgresWithPool wraps an existing pool, used by tests to inject pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS regulatory_documents (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source       TEXT NOT NULL,
	template     TEXT NOT NULL,
	section      TEXT NOT NULL,
	paragraph_id TEXT NOT NULL,
	content      TEXT NOT NULL,
	embedding    vector,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_regdocs_source_template_para
	ON regulatory_documents(source, template, paragraph_id);
CREATE INDEX IF NOT EXISTS idx_regdocs_template ON regulatory_documents(template);

CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	template   TEXT NOT NULL,
	question   TEXT NOT NULL,
	record     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_template ON analyses(template);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// UpsertDocuments inserts corpus documents, updating content and embedding on
// natural-key conflicts. Embeddings cross as pgvector text literals through
// the ::vector cast, so writes stay per-row prepared statements.
func (s *PostgresStore) UpsertDocuments(ctx context.Context, docs []model.Document) (int, error) {
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

		var embedding *string
		if len(doc.Embedding) > 0 {
			lit := pgvectorLiteral(doc.Embedding)
			embedding = &lit
		}

		_, err := s.pool.Exec(ctx, preparedStatements["upsert_document"],
			id, string(doc.Source), doc.Template, doc.Section, doc.ParagraphID, doc.Content, embedding, createdAt,
		)
		if err != nil {
			return count, eris.Wrapf(err, "postgres: upsert document %s", doc.ParagraphID)
		}
		count++
	}
	return count, nil
}

func (s *PostgresStore) DeleteDocuments(ctx context.Context, template string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM regulatory_documents WHERE template = $1`,
		template,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete documents for %s", template)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) CountDocuments(ctx context.Context, template string) (DocumentStats, error) {
	var stats DocumentStats
	err := s.pool.QueryRow(ctx,
		`SELECT count(*), count(embedding) FROM regulatory_documents WHERE template = $1`,
		template,
	).Scan(&stats.Total, &stats.Embedded)
	if err != nil {
		return stats, eris.Wrapf(err, "postgres: count documents for %s", template)
	}
	return stats, nil
}

// SemanticSearch ranks embedded documents by pgvector cosine distance.
func (s *PostgresStore) SemanticSearch(ctx context.Context, template string, embedding []float32, limit int) ([]ScoredDocument, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx, preparedStatements["semantic_search"],
		template, pgvectorLiteral(embedding), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: semantic search")
	}
	defer rows.Close()

	var results []ScoredDocument
	for rows.Next() {
		var sd ScoredDocument
		if err := rows.Scan(&sd.Document.ID, &sd.Document.Source, &sd.Document.Template,
			&sd.Document.Section, &sd.Document.ParagraphID, &sd.Document.Content, &sd.Distance); err != nil {
			return nil, eris.Wrap(err, "postgres: scan semantic result")
		}
		results = append(results, sd)
	}
	return results, eris.Wrap(rows.Err(), "postgres: semantic search iterate")
}

// KeywordSearch matches documents containing any of the given terms,
// case-insensitively.
func (s *PostgresStore) KeywordSearch(ctx context.Context, template string, terms []string, limit int) ([]model.Document, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	query := `SELECT id, source, template, section, paragraph_id, content FROM regulatory_documents WHERE template = $1 AND (`
	args := []any{template}
	for i, term := range terms {
		if i > 0 {
			query += ` OR `
		}
		query += fmt.Sprintf(`content ILIKE $%d`, i+2)
		args = append(args, "%"+term+"%")
	}
	query += fmt.Sprintf(`) LIMIT $%d`, len(terms)+2)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: keyword search")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.Source, &d.Template, &d.Section, &d.ParagraphID, &d.Content); err != nil {
			return nil, eris.Wrap(err, "postgres: scan keyword result")
		}
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: keyword search iterate")
}

func (s *PostgresStore) CreateAnalysis(ctx context.Context, analysis *model.Analysis) error {
	record, err := json.Marshal(analysis)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}

	_, err = s.pool.Exec(ctx, preparedStatements["insert_analysis"],
		analysis.ID, analysis.Query.Template, analysis.Query.Question, record, analysis.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert analysis %s", analysis.ID)
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	var record []byte
	err := s.pool.QueryRow(ctx, preparedStatements["get_analysis"], id).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}

	var analysis model.Analysis
	if err := json.Unmarshal(record, &analysis); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal analysis")
	}
	return &analysis, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT record FROM analyses WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Template != "" {
		query += fmt.Sprintf(` AND template = $%d`, argIdx)
		args = append(args, filter.Template)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis record")
		}
		var a model.Analysis
		if err := json.Unmarshal(record, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal analysis record")
		}
		analyses = append(analyses, a)
	}
	return analyses, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

// Package pgx implements store.AssessmentStorage on PostgreSQL with the
// pgvector extension for the document embedding columns.
package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// AssessmentDBStorage persists analysis runs in PostgreSQL. The
// assessment payload is kept as one jsonb document per run; risk signals
// and embeddings additionally get relational rows so they can be queried
// across runs.
type AssessmentDBStorage struct {
	conn pgxIConn
}

// NewAssessmentDBStorageWithConnection creates storage over an existing
// connection or pool.
func NewAssessmentDBStorageWithConnection(conn pgxIConn) *AssessmentDBStorage {
	return &AssessmentDBStorage{conn: conn}
}

// schema is the complete DDL of this storage. EnsureSchema applies it
// idempotently at startup; there is no separate migration tooling.
const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS analysis_runs (
	id TEXT PRIMARY KEY,
	tender_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	error TEXT NOT NULL DEFAULT '',
	overall_risk_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	assessment JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS risk_signals (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
	signal_type TEXT NOT NULL,
	severity TEXT NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	description TEXT NOT NULL,
	evidence JSONB NOT NULL,
	affected_bidders TEXT[] NOT NULL
);

CREATE INDEX IF NOT EXISTS risk_signals_run_idx ON risk_signals (run_id);

CREATE TABLE IF NOT EXISTS document_embeddings (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
	bidder_id TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	embedding vector(384) NOT NULL,
	UNIQUE (run_id, bidder_id, doc_id)
);
`

// EnsureSchema creates the tables and extension if they do not exist.
func (s *AssessmentDBStorage) EnsureSchema(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, schema)
	return err
}

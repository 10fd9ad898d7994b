package storage

import (
	"context"
	"database/sql"
	"fmt"

	"newsdigest/logger"
	"newsdigest/types"

	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS digest_runs (
	run_id          TEXT PRIMARY KEY,
	status          VARCHAR(32) NOT NULL,
	message         TEXT,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL,
	keywords        TEXT[] NOT NULL DEFAULT '{}',
	trending        TEXT[] NOT NULL DEFAULT '{}',
	article_count   INTEGER NOT NULL DEFAULT 0,
	chunk_count     INTEGER NOT NULL DEFAULT 0,
	candidate_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS digest_results (
	id        SERIAL PRIMARY KEY,
	run_id    TEXT NOT NULL REFERENCES digest_runs(run_id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	title     TEXT,
	url       TEXT NOT NULL,
	topic     VARCHAR(100) NOT NULL,
	sentiment VARCHAR(16) NOT NULL,
	summary   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_digest_runs_started_at ON digest_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_digest_results_run_id ON digest_results(run_id);
`

const insertRun = `
INSERT INTO digest_runs
	(run_id, status, message, started_at, finished_at, keywords, trending, article_count, chunk_count, candidate_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (run_id) DO NOTHING`

const insertResult = `
INSERT INTO digest_results (run_id, position, title, url, topic, sentiment, summary)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// PostgresStore records completed reports in digest_runs and digest_results
type PostgresStore struct {
	db *sql.DB
}

// Open connects, pings and ensures the schema exists
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Log.Info("PostgreSQL report store connected")
	return s, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Name() string { return "postgres" }

// Deliver writes the run and its results in one transaction. A run id that is already stored is
// left untouched.
func (s *PostgresStore) Deliver(ctx context.Context, report *types.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, insertRun, runArgs(report)...)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", report.RunID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		logger.Log.Debugf("Run %s already stored", report.RunID)
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, insertResult)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range report.Results {
		if _, err := stmt.ExecContext(ctx, resultArgs(report.RunID, i, r)...); err != nil {
			return fmt.Errorf("failed to insert result %d of run %s: %w", i, report.RunID, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func runArgs(r *types.Report) []any {
	return []any{
		r.RunID,
		string(r.Status),
		sql.NullString{String: r.Message, Valid: r.Message != ""},
		r.StartedAt.UTC(),
		r.FinishedAt.UTC(),
		pq.Array(nonNil(r.Keywords)),
		pq.Array(nonNil(r.Trending)),
		r.ArticleCount,
		r.ChunkCount,
		r.CandidateCount,
	}
}

func resultArgs(runID string, position int, r types.AnalysisResult) []any {
	return []any{
		runID,
		position,
		sql.NullString{String: r.Title, Valid: r.Title != ""},
		r.URL,
		r.Topic,
		r.Sentiment,
		r.Summary,
	}
}

// pq encodes a nil slice as NULL, which the NOT NULL array columns reject
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package facts

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads and writes the character_facts table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS character_facts (
			id BIGSERIAL PRIMARY KEY,
			fact_text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, keywords []string, limit int) ([]string, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(keywords) == 0 {
		rows, err = s.pool.Query(ctx,
			`SELECT fact_text FROM character_facts ORDER BY id LIMIT $1`, limit)
	} else {
		patterns := make([]string, 0, len(keywords))
		for _, k := range keywords {
			patterns = append(patterns, likePattern(k))
		}
		rows, err = s.pool.Query(ctx,
			`SELECT fact_text FROM character_facts
			 WHERE fact_text ILIKE ANY($1)
			 ORDER BY id LIMIT $2`,
			patterns, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan facts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Insert(ctx context.Context, facts []string) error {
	if len(facts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, f := range facts {
		batch.Queue(`INSERT INTO character_facts (fact_text) VALUES ($1)`, f)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert facts: %w", err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, text string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM character_facts WHERE strpos(fact_text, $1) > 0)`, text,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check fact: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM character_facts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Backend() string { return "postgres" }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

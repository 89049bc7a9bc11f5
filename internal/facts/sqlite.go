package facts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ent0n29/tojibot/internal/sqlitedb"
)

// SQLiteStore keeps facts in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlitedb.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	err = sqlitedb.Exec(ctx, db, `CREATE TABLE IF NOT EXISTS character_facts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fact_text TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	);`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Search(ctx context.Context, keywords []string, limit int) ([]string, error) {
	query := `SELECT fact_text FROM character_facts`
	args := make([]any, 0, len(keywords)+1)
	if len(keywords) > 0 {
		conds := make([]string, 0, len(keywords))
		for _, k := range keywords {
			conds = append(conds, sqlitedb.LowerFunc+`(fact_text) LIKE ? ESCAPE '\'`)
			args = append(args, likePattern(strings.ToLower(k)))
		}
		query += ` WHERE ` + strings.Join(conds, ` OR `)
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0, limit)
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan facts: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan facts: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, facts []string) error {
	if len(facts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert facts: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO character_facts (fact_text) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("insert facts: %w", err)
	}
	defer stmt.Close()
	for _, f := range facts {
		if _, err := stmt.ExecContext(ctx, f); err != nil {
			return fmt.Errorf("insert facts: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert facts: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Exists(ctx context.Context, text string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM character_facts WHERE instr(fact_text, ?) > 0)`, text,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check fact: %w", err)
	}
	return exists, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM character_facts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Backend() string { return "sqlite" }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

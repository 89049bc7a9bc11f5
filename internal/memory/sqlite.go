package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ent0n29/tojibot/internal/sqlitedb"
)

// SQLiteStore persists memory records in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlitedb.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	err = sqlitedb.Exec(ctx, db, `CREATE TABLE IF NOT EXISTS user_memory (
		user_id TEXT PRIMARY KEY,
		memory_data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, userID string) (Record, bool, error) {
	var data, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT memory_data, updated_at FROM user_memory WHERE user_id = ?`, userID,
	).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("load memory: %w", err)
	}
	rec := Record{UserID: userID, Data: []byte(data)}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		rec.UpdatedAt = ts
	}
	return rec, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_memory (user_id, memory_data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET memory_data = excluded.memory_data, updated_at = excluded.updated_at`,
		rec.UserID,
		string(rec.Data),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save memory: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Backend() string { return "sqlite" }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pavelanni/flashquiz/internal/model"
	"github.com/pavelanni/flashquiz/internal/source"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS raw_cache (
		mode TEXT PRIMARY KEY,
		fetched_at DATETIME NOT NULL,
		raw_text TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS source_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetRaw returns the cached body for mode, or nil if none was stored.
func (s *Store) GetRaw(ctx context.Context, mode model.Mode) (*source.Entry, error) {
	var e source.Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at, raw_text FROM raw_cache WHERE mode = ?`, string(mode),
	).Scan(&e.FetchedAt, &e.Raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PutRaw replaces the cached body for mode.
func (s *Store) PutRaw(ctx context.Context, mode model.Mode, e source.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO raw_cache (mode, fetched_at, raw_text) VALUES (?, ?, ?)
		 ON CONFLICT(mode) DO UPDATE SET fetched_at = ?, raw_text = ?`,
		string(mode), e.FetchedAt, e.Raw, e.FetchedAt, e.Raw,
	)
	return err
}

// ClearRaw drops every cached body.
func (s *Store) ClearRaw(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM raw_cache`)
	return err
}

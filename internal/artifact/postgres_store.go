package artifact

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore persists diagrams as rows keyed by content id.
type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) ensureSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS diagram_artifacts (
    id TEXT PRIMARY KEY,
    content BYTEA NOT NULL,
    mime_type TEXT NOT NULL DEFAULT 'application/octet-stream',
    size BIGINT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Put(ctx context.Context, content []byte, mimeType string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("store is nil")
	}
	if len(content) == 0 {
		return "", fmt.Errorf("content is required")
	}
	if err := s.ensureSchema(); err != nil {
		return "", err
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	id := ContentID(content)
	// Write-once per id: identical content maps to the same row, so conflicts
	// are simply ignored.
	_, err := s.db.ExecContext(ctx, `
INSERT INTO diagram_artifacts (id, content, mime_type, size, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING
`, id, content, mimeType, int64(len(content)), time.Now())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) ([]byte, string, error) {
	if s == nil {
		return nil, "", fmt.Errorf("store is nil")
	}
	if strings.TrimSpace(id) == "" {
		return nil, "", fmt.Errorf("id is required")
	}
	if err := s.ensureSchema(); err != nil {
		return nil, "", err
	}
	var content []byte
	var mime string
	err := s.db.QueryRowContext(ctx, `SELECT content, mime_type FROM diagram_artifacts WHERE id=$1`, id).Scan(&content, &mime)
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return content, mime, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Package store persists extracted outlines in SQLite, keyed by the SHA-256
// of the source document.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/docoutline/internal/outline"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("outline not found")

const schema = `
CREATE TABLE IF NOT EXISTS outlines (
	hash       TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	title      TEXT NOT NULL,
	headings   INTEGER NOT NULL,
	result     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outlines_created ON outlines(created_at);
`

// Record is one stored extraction.
type Record struct {
	Hash      string         `json:"hash"`
	Filename  string         `json:"filename"`
	Result    outline.Result `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
}

// Summary is a Record without the outline body, used for listings.
type Summary struct {
	Hash      string    `json:"hash"`
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	Headings  int       `json:"headings"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// One connection: pragmas are per-connection and :memory: is too.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Hash returns the content key used for records.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put inserts or replaces a record. A zero CreatedAt is set to now.
func (s *Store) Put(ctx context.Context, rec Record) error {
	if rec.Hash == "" {
		return fmt.Errorf("store: empty hash")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("store: encode result: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outlines (hash, filename, title, headings, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			filename = excluded.filename,
			title = excluded.title,
			headings = excluded.headings,
			result = excluded.result,
			created_at = excluded.created_at`,
		rec.Hash, rec.Filename, rec.Result.Title, len(rec.Result.Outline), string(body), rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: put %s: %w", rec.Hash, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, hash string) (*Record, error) {
	var (
		rec     Record
		body    string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT hash, filename, result, created_at FROM outlines WHERE hash = ?`, hash,
	).Scan(&rec.Hash, &rec.Filename, &body, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", hash, err)
	}
	if err := json.Unmarshal([]byte(body), &rec.Result); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", hash, err)
	}
	if rec.Result.Outline == nil {
		rec.Result.Outline = []outline.Heading{}
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	return &rec, nil
}

// List returns the most recent records first. limit <= 0 means 50.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, filename, title, headings, created_at
		FROM outlines ORDER BY created_at DESC, hash LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sm      Summary
			created int64
		)
		if err := rows.Scan(&sm.Hash, &sm.Filename, &sm.Title, &sm.Headings, &created); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		sm.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, hash string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM outlines WHERE hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", hash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", hash, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

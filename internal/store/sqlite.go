// Package store provides the SQLite implementation of the Store interface.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite. Entries keep their insertion
// position so loads and samples preserve upsert order.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT,
		embedding BLOB NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_position ON entries(collection, position);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceAll replaces the whole collection with entries in one transaction.
// Readers see either the previous collection or the new one, never a mix.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, collection string, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO entries (collection, id, content, metadata, embedding, position)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		metadataJSON, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, e.ID, e.Content, string(metadataJSON),
			float32SliceToBytes(e.Vector), i); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// LoadAll returns every entry of the collection in insertion order. A row that
// cannot be decoded means the persisted index is malformed and is returned as
// an error rather than skipped.
func (s *SQLiteStore) LoadAll(ctx context.Context, collection string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata, embedding FROM entries
		 WHERE collection = ? ORDER BY position`, collection)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var metadataJSON string
		var blob []byte
		if err := rows.Scan(&e.ID, &e.Content, &metadataJSON, &blob); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &e.Metadata); err != nil {
				return nil, fmt.Errorf("malformed metadata for %s: %w", e.ID, err)
			}
		}
		if len(blob)%4 != 0 || len(blob) == 0 {
			return nil, fmt.Errorf("malformed embedding for %s: %d bytes", e.ID, len(blob))
		}
		e.Vector = bytesToFloat32Slice(blob)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries in the collection.
func (s *SQLiteStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// SampleMetadata returns the metadata of the first limit entries in insertion order.
func (s *SQLiteStore) SampleMetadata(ctx context.Context, collection string, limit int) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT metadata FROM entries WHERE collection = ? ORDER BY position LIMIT ?`,
		collection, limit)
	if err != nil {
		return nil, fmt.Errorf("sample metadata: %w", err)
	}
	defer rows.Close()

	var samples []map[string]any
	for rows.Next() {
		var metadataJSON string
		if err := rows.Scan(&metadataJSON); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		var meta map[string]any
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &meta); err != nil {
				return nil, fmt.Errorf("malformed metadata sample: %w", err)
			}
		}
		samples = append(samples, meta)
	}
	return samples, rows.Err()
}

// DeleteCollection removes every entry of the collection. Removing an
// already-absent collection is a no-op.
func (s *SQLiteStore) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

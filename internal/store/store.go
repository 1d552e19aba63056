// Package store defines the persistence interface for indexed collection entries.
package store

import "context"

// Entry is one persisted index record: the complete retrievable unit.
type Entry struct {
	ID       string
	Content  string
	Metadata map[string]any
	Vector   []float32
}

// Store persists named collections of embedded entries. A collection is
// rebuilt wholesale by ReplaceAll, never partially migrated.
type Store interface {
	ReplaceAll(ctx context.Context, collection string, entries []Entry) error
	LoadAll(ctx context.Context, collection string) ([]Entry, error)
	Count(ctx context.Context, collection string) (int, error)
	SampleMetadata(ctx context.Context, collection string, limit int) ([]map[string]any, error)
	DeleteCollection(ctx context.Context, collection string) error
	Close() error
}

// Package index provides the embedding and vector index engine: it embeds
// chunk text, persists the collection, and serves nearest-neighbor queries
// with optional exact-match metadata filters.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/banglatutor/aparichita/internal/embedding"
	"github.com/banglatutor/aparichita/internal/models"
	"github.com/banglatutor/aparichita/internal/store"
)

// statsSampleLimit bounds how many entries Stats inspects for per-type counts.
const statsSampleLimit = 100

// Engine owns the vector index and its persisted backing store. Queries run
// against an in-memory snapshot that is swapped wholesale on UpsertAll, so
// arbitrarily many concurrent Query calls are safe alongside one rebuild.
type Engine struct {
	embedder   embedding.Embedder
	store      store.Store
	collection string
	logger     *zap.Logger

	mu      sync.RWMutex
	entries []store.Entry
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over the given embedder and store, loading any
// previously persisted collection. A malformed persisted index is a fatal
// initialization error, surfaced rather than repaired.
func NewEngine(embedder embedding.Embedder, st store.Store, collection string, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		embedder:   embedder,
		store:      st,
		collection: collection,
	}
	for _, opt := range opts {
		opt(e)
	}
	entries, err := st.LoadAll(context.Background(), collection)
	if err != nil {
		return nil, fmt.Errorf("load persisted index %q: %w", collection, err)
	}
	e.entries = entries
	if e.logger != nil {
		e.logger.Info("index loaded",
			zap.String("collection", collection),
			zap.Int("entries", len(entries)),
		)
	}
	return e, nil
}

// EmbedBatch embeds texts and validates the batch shape: one vector per text,
// all non-empty and of equal length. Violations surface as EmbeddingError.
func (e *Engine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, &models.EmbeddingError{Reason: err.Error()}
	}
	if len(vectors) != len(texts) {
		return nil, &models.EmbeddingError{
			Reason: fmt.Sprintf("got %d vectors for %d texts", len(vectors), len(texts)),
		}
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, &models.EmbeddingError{Reason: fmt.Sprintf("empty vector at position %d", i)}
		}
		if len(v) != dim {
			return nil, &models.EmbeddingError{
				Reason: fmt.Sprintf("vector length mismatch at position %d: got %d, expected %d", i, len(v), dim),
			}
		}
	}
	return vectors, nil
}

// UpsertAll rebuilds the collection from chunks: embeds all contents in one
// batch, writes the whole set atomically to the store, and swaps the query
// snapshot. A later chunk with a duplicate id replaces the earlier one.
// Returns the number of entries stored. Callers must not run two rebuilds
// concurrently (single-writer discipline).
func (e *Engine) UpsertAll(ctx context.Context, chunks []models.Chunk) (int, error) {
	deduped := make([]models.Chunk, 0, len(chunks))
	byID := make(map[string]int, len(chunks))
	for _, c := range chunks {
		if i, seen := byID[c.ID]; seen {
			deduped[i] = c
			continue
		}
		byID[c.ID] = len(deduped)
		deduped = append(deduped, c)
	}

	texts := make([]string, len(deduped))
	for i, c := range deduped {
		texts[i] = c.Content
	}
	vectors, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	entries := make([]store.Entry, len(deduped))
	for i, c := range deduped {
		entries[i] = store.Entry{
			ID:       c.ID,
			Content:  c.Content,
			Metadata: c.Metadata,
			Vector:   vectors[i],
		}
	}
	if err := e.store.ReplaceAll(ctx, e.collection, entries); err != nil {
		return 0, fmt.Errorf("persist collection: %w", err)
	}
	e.mu.Lock()
	e.entries = entries
	e.mu.Unlock()
	if e.logger != nil {
		e.logger.Info("collection rebuilt",
			zap.String("collection", e.collection),
			zap.Int("entries", len(entries)),
		)
	}
	return len(entries), nil
}

// Query embeds text and returns at most k nearest entries by ascending cosine
// distance, restricted to entries whose metadata matches every key/value of
// filter exactly. Ties keep insertion order. A degenerate query (empty text,
// k <= 0) or an empty index yields an empty result set, not an error.
func (e *Engine) Query(ctx context.Context, text string, k int, filter map[string]any) ([]models.QueryResult, error) {
	if text == "" || k <= 0 {
		return nil, nil
	}
	e.mu.RLock()
	entries := e.entries
	e.mu.RUnlock()
	if len(entries) == 0 {
		return nil, nil
	}
	queryVec, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	type scored struct {
		entry    store.Entry
		distance float64
	}
	var candidates []scored
	for _, entry := range entries {
		if !matchesFilter(entry.Metadata, filter) {
			continue
		}
		candidates = append(candidates, scored{
			entry:    entry,
			distance: cosineDistance(queryVec[0], entry.Vector),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	results := make([]models.QueryResult, k)
	for i := 0; i < k; i++ {
		d := candidates[i].distance
		results[i] = models.QueryResult{
			ID:       candidates[i].entry.ID,
			Content:  candidates[i].entry.Content,
			Metadata: candidates[i].entry.Metadata,
			Distance: &d,
		}
	}
	return results, nil
}

// Stats returns the total entry count and per-type counts computed from the
// first min(100, total) persisted entries, so counts are exact for small
// collections and approximate beyond the sample bound.
func (e *Engine) Stats(ctx context.Context) (*models.IndexStats, error) {
	total, err := e.store.Count(ctx, e.collection)
	if err != nil {
		return nil, err
	}
	limit := total
	if limit > statsSampleLimit {
		limit = statsSampleLimit
	}
	countsByType := make(map[string]int)
	if limit > 0 {
		samples, err := e.store.SampleMetadata(ctx, e.collection, limit)
		if err != nil {
			return nil, err
		}
		for _, meta := range samples {
			t := "unknown"
			if s, ok := meta["type"].(string); ok && s != "" {
				t = s
			}
			countsByType[t]++
		}
	}
	return &models.IndexStats{
		TotalCount:   total,
		CountsByType: countsByType,
		Collection:   e.collection,
	}, nil
}

// DeleteAll removes the collection from the store and clears the snapshot.
// Idempotent: deleting an already-absent collection is a no-op.
func (e *Engine) DeleteAll(ctx context.Context) error {
	if err := e.store.DeleteCollection(ctx, e.collection); err != nil {
		return err
	}
	e.mu.Lock()
	e.entries = nil
	e.mu.Unlock()
	return nil
}

// Size returns the number of entries in the query snapshot.
func (e *Engine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}

// matchesFilter reports whether meta satisfies every key/value pair of filter.
// Numeric values compare by value so int metadata matches float64 loaded from JSON.
func matchesFilter(meta, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok || !scalarEqual(got, want) {
			return false
		}
	}
	return true
}

func scalarEqual(a, b any) bool {
	if af, ok := toFloat64(a); ok {
		bf, bok := toFloat64(b)
		return bok && af == bf
	}
	return a == b
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// cosineDistance returns 1 - cosine similarity (0 = identical direction).
// A zero-norm vector is maximally dissimilar to everything.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
	return math.Max(0, d)
}

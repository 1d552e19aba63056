package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/banglatutor/aparichita/internal/embedding"
	"github.com/banglatutor/aparichita/internal/models"
	"github.com/banglatutor/aparichita/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	e, err := NewEngine(embedding.NewMockEmbedder(64), st, "test")
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func testChunks() []models.Chunk {
	return []models.Chunk{
		{ID: "story_0", Type: models.ChunkStory, Content: "আজ আমার বয়স সাতাশ মাত্র।", Metadata: map[string]any{"type": "story", "section": 1}},
		{ID: "story_1", Type: models.ChunkStory, Content: "মামা আমার ভাগ্য দেবতা।", Metadata: map[string]any{"type": "story", "section": 2}},
		{ID: "mcq_2", Type: models.ChunkMCQ, Content: "প্রশ্ন: অনুপমের বয়স কত? উত্তর: সাতাশ বছর।", Metadata: map[string]any{"type": "mcq"}},
		{ID: "word_meaning_3", Type: models.ChunkWordMeaning, Content: "শব্দ: গজানন অর্থ: গণেশ", Metadata: map[string]any{"type": "word_meaning"}},
	}
}

func TestUpsertAllAndSelfRetrieval(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	n, err := e.UpsertAll(ctx, testChunks())
	if err != nil {
		t.Fatalf("UpsertAll failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("indexed %d, want 4", n)
	}

	// Querying with a chunk's exact text must rank that chunk first at
	// effectively zero distance.
	results, err := e.Query(ctx, "মামা আমার ভাগ্য দেবতা।", 2, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "story_1" {
		t.Errorf("top result = %q, want story_1", results[0].ID)
	}
	if results[0].Distance == nil || *results[0].Distance > 1e-6 {
		t.Errorf("self-retrieval distance = %v, want ~0", results[0].Distance)
	}
}

func TestQueryDistancesAscending(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.UpsertAll(ctx, testChunks()); err != nil {
		t.Fatal(err)
	}

	results, err := e.Query(ctx, "বয়স", 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(results); i++ {
		if *results[i-1].Distance > *results[i].Distance {
			t.Errorf("distances not ascending at %d: %v > %v", i, *results[i-1].Distance, *results[i].Distance)
		}
	}
}

func TestQueryKClamp(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.UpsertAll(ctx, testChunks()); err != nil {
		t.Fatal(err)
	}

	results, err := e.Query(ctx, "গল্প", 100, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Errorf("got %d results, want all 4", len(results))
	}
}

func TestQueryFilter(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.UpsertAll(ctx, testChunks()); err != nil {
		t.Fatal(err)
	}

	results, err := e.Query(ctx, "অর্থ", 10, map[string]any{"type": "word_meaning"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "word_meaning_3" {
		t.Fatalf("filtered results = %v", results)
	}

	// Numeric filters match across int/float64 representations. Metadata was
	// persisted through JSON, so section comes back as float64; an int filter
	// value must still match.
	results, err = e.Query(ctx, "মামা", 10, map[string]any{"section": 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "story_1" {
		t.Fatalf("numeric-filtered results = %v", results)
	}

	// A filter nothing matches yields an empty set, not an error.
	results, err = e.Query(ctx, "গল্প", 10, map[string]any{"type": "nonexistent"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results for unmatched filter", len(results))
	}
}

func TestQueryDegenerateInputs(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.UpsertAll(ctx, testChunks()); err != nil {
		t.Fatal(err)
	}

	if results, err := e.Query(ctx, "", 5, nil); err != nil || results != nil {
		t.Errorf("empty text: results=%v err=%v, want nil/nil", results, err)
	}
	if results, err := e.Query(ctx, "কিছু", 0, nil); err != nil || results != nil {
		t.Errorf("k=0: results=%v err=%v, want nil/nil", results, err)
	}
}

func TestQueryEmptyIndex(t *testing.T) {
	e := newTestEngine(t)
	results, err := e.Query(context.Background(), "কিছু", 5, nil)
	if err != nil {
		t.Fatalf("Query on empty index failed: %v", err)
	}
	if results != nil {
		t.Errorf("got %v, want nil", results)
	}
}

func TestUpsertAllDuplicateIDs(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	chunks := []models.Chunk{
		{ID: "story_0", Content: "পুরনো সংস্করণ", Metadata: map[string]any{"type": "story"}},
		{ID: "story_0", Content: "নতুন সংস্করণ", Metadata: map[string]any{"type": "story"}},
	}
	n, err := e.UpsertAll(ctx, chunks)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("indexed %d, want 1 after dedupe", n)
	}
	results, err := e.Query(ctx, "নতুন সংস্করণ", 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Content != "নতুন সংস্করণ" {
		t.Errorf("later duplicate did not win: %v", results)
	}
}

func TestStats(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.UpsertAll(ctx, testChunks()); err != nil {
		t.Fatal(err)
	}

	stats, err := e.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalCount != 4 {
		t.Errorf("total = %d, want 4", stats.TotalCount)
	}
	if stats.Collection != "test" {
		t.Errorf("collection = %q", stats.Collection)
	}
	if stats.CountsByType["story"] != 2 || stats.CountsByType["mcq"] != 1 || stats.CountsByType["word_meaning"] != 1 {
		t.Errorf("counts by type = %v", stats.CountsByType)
	}
}

func TestDeleteAll(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.UpsertAll(ctx, testChunks()); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if e.Size() != 0 {
		t.Errorf("size = %d after delete", e.Size())
	}
	// Deleting again is a no-op.
	if err := e.DeleteAll(ctx); err != nil {
		t.Errorf("second DeleteAll: %v", err)
	}
}

func TestPersistenceAcrossEngines(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine(embedding.NewMockEmbedder(64), st, "test")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.UpsertAll(ctx, testChunks()); err != nil {
		t.Fatal(err)
	}
	_ = st.Close()

	st2, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	e2, err := NewEngine(embedding.NewMockEmbedder(64), st2, "test")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if e2.Size() != 4 {
		t.Fatalf("reloaded size = %d, want 4", e2.Size())
	}
	results, err := e2.Query(ctx, "মামা আমার ভাগ্য দেবতা।", 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "story_1" {
		t.Errorf("reloaded query results = %v", results)
	}
}

// failingEmbedder returns an error from every call.
type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("model unavailable")
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("model unavailable")
}

func (failingEmbedder) Dimensions() int { return 64 }
func (failingEmbedder) Close() error    { return nil }

// shortEmbedder returns fewer vectors than texts.
type shortEmbedder struct{}

func (shortEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (shortEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1, 0}}, nil
}

func (shortEmbedder) Dimensions() int { return 2 }
func (shortEmbedder) Close() error    { return nil }

func TestEmbedBatchErrors(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "err.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	ctx := context.Background()

	e, err := NewEngine(failingEmbedder{}, st, "test")
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.EmbedBatch(ctx, []string{"ক", "খ"})
	if !models.IsEmbeddingError(err) {
		t.Errorf("expected EmbeddingError, got %v", err)
	}

	e2, err := NewEngine(shortEmbedder{}, st, "test2")
	if err != nil {
		t.Fatal(err)
	}
	_, err = e2.EmbedBatch(ctx, []string{"ক", "খ"})
	if !models.IsEmbeddingError(err) {
		t.Errorf("expected EmbeddingError for shape mismatch, got %v", err)
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
		{"length mismatch", []float32{1}, []float32{1, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineDistance(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

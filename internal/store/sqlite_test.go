package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testEntries() []Entry {
	return []Entry{
		{ID: "story_0", Content: "আজ আমার বয়স সাতাশ।", Metadata: map[string]any{"type": "story", "section": float64(1)}, Vector: []float32{0.1, 0.2, 0.3}},
		{ID: "mcq_1", Content: "প্রশ্ন: বয়স কত?", Metadata: map[string]any{"type": "mcq"}, Vector: []float32{0.4, 0.5, 0.6}},
		{ID: "word_meaning_2", Content: "শব্দ: গজানন", Metadata: map[string]any{"type": "word_meaning"}, Vector: []float32{0.7, 0.8, 0.9}},
	}
}

func TestReplaceAllAndLoadAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceAll(ctx, "lit", testEntries()); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}
	got, err := s.LoadAll(ctx, "lit")
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	// Insertion order survives the roundtrip.
	wantIDs := []string{"story_0", "mcq_1", "word_meaning_2"}
	for i, e := range got {
		if e.ID != wantIDs[i] {
			t.Errorf("entry %d: id = %q, want %q", i, e.ID, wantIDs[i])
		}
	}
	if got[0].Content != "আজ আমার বয়স সাতাশ।" {
		t.Errorf("content = %q", got[0].Content)
	}
	if got[0].Metadata["type"] != "story" {
		t.Errorf("metadata type = %v", got[0].Metadata["type"])
	}
	if len(got[0].Vector) != 3 || got[0].Vector[1] != 0.2 {
		t.Errorf("vector = %v", got[0].Vector)
	}
}

func TestReplaceAllIsWholesale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceAll(ctx, "lit", testEntries()); err != nil {
		t.Fatal(err)
	}
	replacement := []Entry{
		{ID: "story_0", Content: "নতুন সংস্করণ", Metadata: map[string]any{"type": "story"}, Vector: []float32{1, 0, 0}},
	}
	if err := s.ReplaceAll(ctx, "lit", replacement); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadAll(ctx, "lit")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries after replace, want 1", len(got))
	}
	if got[0].Content != "নতুন সংস্করণ" {
		t.Errorf("content = %q", got[0].Content)
	}
}

func TestCollectionsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceAll(ctx, "a", testEntries()); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceAll(ctx, "b", testEntries()[:1]); err != nil {
		t.Fatal(err)
	}

	na, err := s.Count(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	nb, err := s.Count(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if na != 3 || nb != 1 {
		t.Errorf("counts = %d, %d; want 3, 1", na, nb)
	}

	if err := s.DeleteCollection(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	na, _ = s.Count(ctx, "a")
	nb, _ = s.Count(ctx, "b")
	if na != 0 || nb != 1 {
		t.Errorf("after delete: counts = %d, %d; want 0, 1", na, nb)
	}
}

func TestDeleteCollectionIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.DeleteCollection(ctx, "never_existed"); err != nil {
		t.Errorf("deleting absent collection should be a no-op, got %v", err)
	}
}

func TestSampleMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.ReplaceAll(ctx, "lit", testEntries()); err != nil {
		t.Fatal(err)
	}

	samples, err := s.SampleMetadata(ctx, "lit", 2)
	if err != nil {
		t.Fatalf("SampleMetadata failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if samples[0]["type"] != "story" || samples[1]["type"] != "mcq" {
		t.Errorf("samples out of order: %v", samples)
	}
}

func TestLoadAllEmptyCollection(t *testing.T) {
	s := newTestStore(t)
	got, err := s.LoadAll(context.Background(), "empty")
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d entries, want 0", len(got))
	}
}

func TestVectorRoundtrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7, 1e7}
	out := bytesToFloat32Slice(float32SliceToBytes(in))
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d vs %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("index %d: %v != %v", i, in[i], out[i])
		}
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceAll(ctx, "lit", testEntries()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	got, err := s2.LoadAll(ctx, "lit")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("got %d entries after reopen, want 3", len(got))
	}
}

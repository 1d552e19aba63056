package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/banglatutor/aparichita/internal/embedding"
	"github.com/banglatutor/aparichita/internal/index"
	"github.com/banglatutor/aparichita/internal/memory"
	"github.com/banglatutor/aparichita/internal/models"
	"github.com/banglatutor/aparichita/internal/store"
)

const testCorpus = `{
  "organized_sections": {
    "story_text": [
      {"section": 1, "title": "ভূমিকা", "content": "আজ আমার বয়স সাতাশ মাত্র।"},
      {"section": 2, "title": "মামা", "content": "মামা আমার ভাগ্য দেবতা।"}
    ],
    "mcq_questions": {
      "board": [
        {"question_number": 1, "question": "অনুপমের বয়স কত?", "correct_answer": "ক", "explanation": "সাতাশ বছর।"}
      ]
    },
    "word_meanings": {
      "section_1": {"গজানন": "গণেশ"}
    },
    "characters_detailed": {
      "প্রধান": {
        "অনুপম": {"role": "কথক"}
      }
    }
  }
}`

func writeTestCorpus(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "content.json")
	if err := os.WriteFile(path, []byte(testCorpus), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestSystem(t *testing.T, gen Generator) (*System, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	engine, err := index.NewEngine(embedding.NewMockEmbedder(64), st, "test")
	if err != nil {
		t.Fatal(err)
	}
	mem := memory.NewManager(filepath.Join(dir, "memory"), 10)
	return NewSystem(engine, gen, mem, 5), dir
}

func buildTestKnowledgeBase(t *testing.T, s *System, dir string) int {
	t.Helper()
	path := writeTestCorpus(t, dir)
	n, err := s.BuildKnowledgeBase(context.Background(), path, "")
	if err != nil {
		t.Fatalf("BuildKnowledgeBase failed: %v", err)
	}
	return n
}

func TestBuildKnowledgeBase(t *testing.T) {
	s, dir := newTestSystem(t, &fakeGenerator{answer: "উত্তর"})
	n := buildTestKnowledgeBase(t, s, dir)
	if n != 5 {
		t.Errorf("indexed %d chunks, want 5", n)
	}
}

func TestBuildKnowledgeBaseSnapshot(t *testing.T) {
	s, dir := newTestSystem(t, &fakeGenerator{answer: "উত্তর"})
	path := writeTestCorpus(t, dir)
	snapshot := filepath.Join(dir, "chunks.json")
	if _, err := s.BuildKnowledgeBase(context.Background(), path, snapshot); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(snapshot)
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	if len(data) == 0 {
		t.Error("snapshot is empty")
	}
}

func TestBuildKnowledgeBaseMissingCorpus(t *testing.T) {
	s, dir := newTestSystem(t, &fakeGenerator{answer: "উত্তর"})
	if _, err := s.BuildKnowledgeBase(context.Background(), filepath.Join(dir, "missing.json"), ""); err == nil {
		t.Error("expected error for missing corpus file")
	}
}

func TestProcessQueryNotInitialized(t *testing.T) {
	s, _ := newTestSystem(t, &fakeGenerator{answer: "উত্তর"})
	_, err := s.ProcessQuery(context.Background(), "অনুপম কে?", true)
	if !errors.Is(err, models.ErrNotInitialized) {
		t.Errorf("err = %v, want ErrNotInitialized", err)
	}
}

func TestProcessQuery(t *testing.T) {
	g := &fakeGenerator{answer: "অনুপম গল্পের কথক।"}
	s, dir := newTestSystem(t, g)
	buildTestKnowledgeBase(t, s, dir)

	resp, err := s.ProcessQuery(context.Background(), "আজ আমার বয়স সাতাশ মাত্র।", true)
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}
	if resp.Response != "অনুপম গল্পের কথক।" {
		t.Errorf("response = %q", resp.Response)
	}
	if resp.Language != LanguageBengali {
		t.Errorf("language = %q", resp.Language)
	}
	if len(resp.RetrievedChunks) == 0 {
		t.Fatal("no chunks retrieved")
	}
	if resp.RetrievedChunks[0].ID != "story_0" {
		t.Errorf("top chunk = %q, want story_0 (exact content match)", resp.RetrievedChunks[0].ID)
	}
	if resp.ContextUsed == "" {
		t.Error("context used is empty")
	}

	// The interaction is recorded in memory.
	if s.Memory().Conversations().Len() != 1 {
		t.Errorf("conversation count = %d", s.Memory().Conversations().Len())
	}
}

func TestProcessQueryConversationContext(t *testing.T) {
	g := &fakeGenerator{answer: "উত্তর"}
	s, dir := newTestSystem(t, g)
	buildTestKnowledgeBase(t, s, dir)
	ctx := context.Background()

	if _, err := s.ProcessQuery(ctx, "অনুপম কে?", true); err != nil {
		t.Fatal(err)
	}
	resp, err := s.ProcessQuery(ctx, "মামা কে?", true)
	if err != nil {
		t.Fatal(err)
	}
	if resp.ConversationContext == "" {
		t.Error("second query should carry conversation context")
	}

	resp, err = s.ProcessQuery(ctx, "কল্যাণী কে?", false)
	if err != nil {
		t.Fatal(err)
	}
	if resp.ConversationContext != "" {
		t.Error("useConversationContext=false must omit conversation context")
	}
}

func TestProcessQueryGenerationFailure(t *testing.T) {
	s, dir := newTestSystem(t, &fakeGenerator{err: errors.New("api down")})
	buildTestKnowledgeBase(t, s, dir)

	resp, err := s.ProcessQuery(context.Background(), "অনুপম কে?", true)
	if err != nil {
		t.Fatalf("generation failure must not fail the query: %v", err)
	}
	if resp.Response == "" {
		t.Error("response must be the apology, not empty")
	}
}

func TestCharacterInfo(t *testing.T) {
	g := &fakeGenerator{answer: "অনুপম গল্পের কথক।"}
	s, dir := newTestSystem(t, g)
	buildTestKnowledgeBase(t, s, dir)

	resp, err := s.CharacterInfo(context.Background(), "অনুপম")
	if err != nil {
		t.Fatalf("CharacterInfo failed: %v", err)
	}
	if resp.Character != "অনুপম" {
		t.Errorf("character = %q", resp.Character)
	}
	if resp.Response == "" {
		t.Error("empty response")
	}
	// character-typed results first, then story mentions.
	if len(resp.RetrievedChunks) == 0 {
		t.Fatal("no chunks retrieved")
	}
	if models.ChunkTypeOf(resp.RetrievedChunks[0]) != "character" {
		t.Errorf("first chunk type = %q, want character", models.ChunkTypeOf(resp.RetrievedChunks[0]))
	}
}

func TestCharacterInfoNotInitialized(t *testing.T) {
	s, _ := newTestSystem(t, &fakeGenerator{answer: "x"})
	if _, err := s.CharacterInfo(context.Background(), "অনুপম"); !errors.Is(err, models.ErrNotInitialized) {
		t.Errorf("err = %v, want ErrNotInitialized", err)
	}
}

func TestWordMeaning(t *testing.T) {
	g := &fakeGenerator{answer: "গজানন মানে গণেশ।"}
	s, dir := newTestSystem(t, g)
	buildTestKnowledgeBase(t, s, dir)

	resp, err := s.WordMeaning(context.Background(), "গজানন")
	if err != nil {
		t.Fatalf("WordMeaning failed: %v", err)
	}
	if !resp.Found {
		t.Error("expected Found=true")
	}
	if resp.Response != "গজানন মানে গণেশ।" {
		t.Errorf("response = %q", resp.Response)
	}
	if len(resp.RetrievedChunks) == 0 {
		t.Error("no chunks retrieved")
	}
}

func TestWordMeaningNotFoundSkipsGenerator(t *testing.T) {
	g := &fakeGenerator{answer: "উত্তর"}
	s, dir := newTestSystem(t, g)

	// Index only story chunks: no word_meaning entries exist.
	path := filepath.Join(dir, "stories.json")
	data := `{"organized_sections":{"story_text":[{"section":1,"title":"ভূমিকা","content":"আজ আমার বয়স সাতাশ।"}]}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.BuildKnowledgeBase(context.Background(), path, ""); err != nil {
		t.Fatal(err)
	}

	resp, err := s.WordMeaning(context.Background(), "অজানাশব্দ")
	if err != nil {
		t.Fatalf("WordMeaning failed: %v", err)
	}
	if resp.Found {
		t.Error("expected Found=false")
	}
	if resp.Response == "" {
		t.Error("not-found reply must still be textual")
	}
	if len(g.userPrompts) != 0 {
		t.Error("generator must not be called for an absent word")
	}
}

func TestStoryContext(t *testing.T) {
	s, dir := newTestSystem(t, &fakeGenerator{answer: "x"})
	buildTestKnowledgeBase(t, s, dir)

	chunks, err := s.StoryContext(context.Background(), "মামা")
	if err != nil {
		t.Fatalf("StoryContext failed: %v", err)
	}
	for _, c := range chunks {
		if models.ChunkTypeOf(c) != "story" {
			t.Errorf("non-story chunk %q in story context", c.ID)
		}
	}
}

func TestSystemStats(t *testing.T) {
	s, dir := newTestSystem(t, &fakeGenerator{answer: "উত্তর"})
	buildTestKnowledgeBase(t, s, dir)
	if _, err := s.ProcessQuery(context.Background(), "অনুপম কে?", true); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Status != "active" {
		t.Errorf("status = %q", stats.Status)
	}
	if stats.VectorStore.TotalCount != 5 {
		t.Errorf("total = %d, want 5", stats.VectorStore.TotalCount)
	}
	if stats.Memory.ConversationCount != 1 {
		t.Errorf("conversations = %d", stats.Memory.ConversationCount)
	}
}

package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/banglatutor/aparichita/internal/corpus"
	"github.com/banglatutor/aparichita/internal/index"
	"github.com/banglatutor/aparichita/internal/memory"
	"github.com/banglatutor/aparichita/internal/models"
	"github.com/banglatutor/aparichita/internal/preprocess"
)

// System wires the index engine, orchestrator, composer, and interaction
// memory into the complete query pipeline. One System serves one process;
// all mutable session state lives in its components, never in globals.
type System struct {
	engine       *index.Engine
	orchestrator *Orchestrator
	composer     *Composer
	memory       *memory.Manager
	logger       *zap.Logger
}

// SystemOption configures a System.
type SystemOption func(*System)

// WithSystemLogger sets a logger shared by the system and its orchestrator/composer.
func WithSystemLogger(l *zap.Logger) SystemOption {
	return func(s *System) { s.logger = l }
}

// QueryResponse is the complete result of one processed query. ProcessQuery
// always returns a filled structure (the response text may be an apology)
// unless the knowledge base was never built.
type QueryResponse struct {
	Query               string               `json:"query"`
	Response            string               `json:"response"`
	RetrievedChunks     []models.QueryResult `json:"retrieved_chunks"`
	Language            string               `json:"language"`
	ContextUsed         string               `json:"context_used"`
	ConversationContext string               `json:"conversation_context"`
}

// CharacterResponse is the result of a character lookup.
type CharacterResponse struct {
	Character       string               `json:"character"`
	Response        string               `json:"response"`
	RetrievedChunks []models.QueryResult `json:"retrieved_chunks"`
}

// WordResponse is the result of a word-meaning lookup. Found is false when the
// glossary has no entry; Response then states so rather than inventing one.
type WordResponse struct {
	Word            string               `json:"word"`
	Response        string               `json:"response"`
	RetrievedChunks []models.QueryResult `json:"retrieved_chunks"`
	Found           bool                 `json:"found"`
}

// SystemStats combines index and memory statistics.
type SystemStats struct {
	VectorStore *models.IndexStats `json:"vector_store"`
	Memory      *memory.Stats      `json:"memory"`
	Status      string             `json:"system_status"`
}

// NewSystem assembles the pipeline from its owned collaborators.
func NewSystem(engine *index.Engine, generator Generator, mem *memory.Manager, maxChunks int, opts ...SystemOption) *System {
	s := &System{
		engine: engine,
		memory: mem,
	}
	for _, opt := range opts {
		opt(s)
	}
	var orchOpts []OrchestratorOption
	var compOpts []ComposerOption
	if s.logger != nil {
		orchOpts = append(orchOpts, WithOrchestratorLogger(s.logger))
		compOpts = append(compOpts, WithComposerLogger(s.logger))
	}
	s.orchestrator = NewOrchestrator(engine, maxChunks, orchOpts...)
	s.composer = NewComposer(generator, compOpts...)
	return s
}

// BuildKnowledgeBase loads the source document at corpusPath, structures it,
// and rebuilds the index wholesale. When snapshotPath is non-empty the
// structured chunks are also written there for reference (best effort).
// Structural errors from the source document propagate: they are authoring
// bugs, not runtime conditions.
func (s *System) BuildKnowledgeBase(ctx context.Context, corpusPath, snapshotPath string) (int, error) {
	doc, err := corpus.LoadDocument(corpusPath)
	if err != nil {
		return 0, err
	}
	chunks := corpus.Structure(doc)
	count, err := s.engine.UpsertAll(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("index corpus: %w", err)
	}
	if snapshotPath != "" {
		if data, err := json.MarshalIndent(chunks, "", "  "); err == nil {
			if werr := os.WriteFile(snapshotPath, data, 0644); werr != nil && s.logger != nil {
				s.logger.Warn("structured snapshot write failed", zap.Error(werr))
			}
		}
	}
	if s.logger != nil {
		s.logger.Info("knowledge base built",
			zap.String("corpus", corpusPath),
			zap.Int("chunks", count),
		)
	}
	return count, nil
}

// ProcessQuery runs the full pipeline for one query: conversation context,
// retrieval, composition, generation, and memory recording. Per-query failures
// degrade (empty retrieval, apologetic reply); only an unbuilt knowledge base
// fails fast.
func (s *System) ProcessQuery(ctx context.Context, query string, useConversationContext bool) (*QueryResponse, error) {
	if s.engine.Size() == 0 {
		return nil, models.ErrNotInitialized
	}
	var convContext string
	if useConversationContext {
		convContext = s.memory.ContextForQuery(query).ConversationContext
	}
	chunks, err := s.orchestrator.Retrieve(ctx, query)
	if err != nil {
		// Retrieval failure degrades to an unassisted answer attempt.
		if s.logger != nil {
			s.logger.Warn("retrieval failed", zap.String("query", query), zap.Error(err))
		}
		chunks = nil
	}
	docContext := s.composer.BuildContext(chunks)
	language := DetectLanguage(preprocess.Normalize(query))
	response := s.composer.Respond(ctx, query, docContext, convContext)
	s.memory.AddInteraction(query, response, chunks, language)
	return &QueryResponse{
		Query:               query,
		Response:            response,
		RetrievedChunks:     chunks,
		Language:            language,
		ContextUsed:         docContext,
		ConversationContext: convContext,
	}, nil
}

// CharacterInfo answers a lookup about one character by name.
func (s *System) CharacterInfo(ctx context.Context, name string) (*CharacterResponse, error) {
	if s.engine.Size() == 0 {
		return nil, models.ErrNotInitialized
	}
	chunks, err := s.orchestrator.CharacterInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	language := DetectLanguage(name)
	var query string
	if language == LanguageEnglish {
		query = fmt.Sprintf("Tell me about the character %s", name)
	} else {
		query = fmt.Sprintf("%s চরিত্র সম্পর্কে বলুন", name)
	}
	response := s.composer.Respond(ctx, query, s.composer.BuildContext(chunks), "")
	return &CharacterResponse{
		Character:       name,
		Response:        response,
		RetrievedChunks: chunks,
	}, nil
}

// WordMeaning answers a glossary lookup. A word absent from the glossary gets
// an explicit not-found reply without calling the generator.
func (s *System) WordMeaning(ctx context.Context, word string) (*WordResponse, error) {
	if s.engine.Size() == 0 {
		return nil, models.ErrNotInitialized
	}
	chunks, err := s.orchestrator.WordMeaning(ctx, word)
	if err != nil {
		return nil, err
	}
	language := DetectLanguage(word)
	if len(chunks) == 0 {
		return &WordResponse{
			Word:     word,
			Response: notFound(language),
			Found:    false,
		}, nil
	}
	var query string
	if language == LanguageEnglish {
		query = fmt.Sprintf("What is the meaning of %s?", word)
	} else {
		query = fmt.Sprintf("%s শব্দের অর্থ কী?", word)
	}
	response := s.composer.Respond(ctx, query, s.composer.BuildContext(chunks), "")
	return &WordResponse{
		Word:            word,
		Response:        response,
		RetrievedChunks: chunks,
		Found:           true,
	}, nil
}

// StoryContext returns story sections relevant to query without generation.
func (s *System) StoryContext(ctx context.Context, query string) ([]models.QueryResult, error) {
	if s.engine.Size() == 0 {
		return nil, models.ErrNotInitialized
	}
	return s.orchestrator.StoryContext(ctx, query)
}

// Stats reports combined index and memory statistics.
func (s *System) Stats(ctx context.Context) (*SystemStats, error) {
	indexStats, err := s.engine.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &SystemStats{
		VectorStore: indexStats,
		Memory:      s.memory.MemoryStats(),
		Status:      "active",
	}, nil
}

// Memory exposes the interaction memory manager.
func (s *System) Memory() *memory.Manager {
	return s.memory
}

package rag

import (
	"context"

	"go.uber.org/zap"

	"github.com/banglatutor/aparichita/internal/models"
	"github.com/banglatutor/aparichita/internal/preprocess"
)

// Retrieval limits. MaxChunksToRetrieve bounds the general search; the
// entity-specific lookups use their own fixed limits.
const (
	MaxChunksToRetrieve = 5

	characterLimit      = 5
	characterStoryLimit = 3
	wordMeaningLimit    = 3
	storyContextLimit   = 5
)

// fallbackDistanceThreshold is the distance above which the rewritten-query
// search is considered a poor match and retried with the original text.
const fallbackDistanceThreshold = 0.8

// Searcher is the index capability the orchestrator needs.
type Searcher interface {
	Query(ctx context.Context, text string, k int, filter map[string]any) ([]models.QueryResult, error)
}

// Orchestrator decides how to search the index for one query. It is stateless
// across queries; it borrows the index for the duration of each call.
type Orchestrator struct {
	index     Searcher
	maxChunks int
	logger    *zap.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets a logger for retrieval debug events.
func WithOrchestratorLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates an orchestrator over index retrieving at most
// maxChunks results per search (MaxChunksToRetrieve when maxChunks <= 0).
func NewOrchestrator(index Searcher, maxChunks int, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{index: index, maxChunks: maxChunks}
	if o.maxChunks <= 0 {
		o.maxChunks = MaxChunksToRetrieve
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Retrieve runs the full pipeline for a free-text query: normalize, detect the
// dominant script, rewrite toward Bengali when the query is not Bengali, search,
// and fall back to the unrewritten query when the primary search returns nothing
// or its best hit is beyond the quality threshold.
func (o *Orchestrator) Retrieve(ctx context.Context, query string) ([]models.QueryResult, error) {
	cleaned := preprocess.Normalize(query)
	if cleaned == "" {
		return nil, nil
	}
	searchText := cleaned
	if DetectLanguage(cleaned) != LanguageBengali {
		searchText = RewriteQuery(cleaned)
	}
	results, err := o.index.Query(ctx, searchText, o.maxChunks, nil)
	if err != nil {
		return nil, err
	}
	if poorMatch(results) {
		if o.logger != nil {
			o.logger.Debug("primary search poor, retrying with original query",
				zap.String("rewritten", searchText),
				zap.String("original", cleaned),
			)
		}
		results, err = o.index.Query(ctx, cleaned, o.maxChunks, nil)
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// poorMatch reports whether a result set should trigger the fallback search:
// no results at all, or a best hit beyond the distance threshold. A missing
// distance is not treated as a poor match.
func poorMatch(results []models.QueryResult) bool {
	if len(results) == 0 {
		return true
	}
	d := results[0].Distance
	return d != nil && *d > fallbackDistanceThreshold
}

// SearchByType searches with a fixed type-equality filter, skipping language
// rewriting and fallback.
func (o *Orchestrator) SearchByType(ctx context.Context, query string, chunkType models.ChunkType, k int) ([]models.QueryResult, error) {
	cleaned := preprocess.Normalize(query)
	return o.index.Query(ctx, cleaned, k, map[string]any{"type": string(chunkType)})
}

// CharacterInfo unions character-typed results for name with story-typed
// mentions, character results first. The two sub-searches are concatenated
// without deduplication, so an overlapping chunk can appear twice.
func (o *Orchestrator) CharacterInfo(ctx context.Context, name string) ([]models.QueryResult, error) {
	characters, err := o.SearchByType(ctx, name, models.ChunkCharacter, characterLimit)
	if err != nil {
		return nil, err
	}
	stories, err := o.SearchByType(ctx, name, models.ChunkStory, characterStoryLimit)
	if err != nil {
		return nil, err
	}
	return append(characters, stories...), nil
}

// WordMeaning looks up glossary entries for word.
func (o *Orchestrator) WordMeaning(ctx context.Context, word string) ([]models.QueryResult, error) {
	return o.SearchByType(ctx, word, models.ChunkWordMeaning, wordMeaningLimit)
}

// StoryContext returns story sections relevant to query.
func (o *Orchestrator) StoryContext(ctx context.Context, query string) ([]models.QueryResult, error) {
	return o.SearchByType(ctx, query, models.ChunkStory, storyContextLimit)
}

package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/banglatutor/aparichita/internal/models"
)

const statsFileName = "usage_stats.json"

// Manager combines the conversation store and usage statistics under one
// lifecycle. Both persist under dir.
type Manager struct {
	conversations *ConversationStore
	usage         *UsageStats
	dir           string
	logger        *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets a logger for load/save events.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// QueryContext bundles everything memory contributes to answering one query.
type QueryContext struct {
	RecentConversations []models.ConversationTurn `json:"recent_conversations"`
	ConversationContext string                    `json:"conversation_context"`
	SimilarPastQueries  []models.ConversationTurn `json:"similar_past_queries"`
	QuerySuggestions    []string                  `json:"query_suggestions"`
	PreferredLanguage   string                    `json:"preferred_language"`
}

// Stats summarizes memory usage.
type Stats struct {
	ConversationCount int                     `json:"conversation_count"`
	QueryPatternCount int                     `json:"query_patterns_count"`
	AccessRecordCount int                     `json:"document_access_records"`
	SessionID         string                  `json:"session_id"`
	PreferredLanguage string                  `json:"preferred_language"`
	PopularDocuments  []models.DocumentAccess `json:"popular_documents"`
}

// NewManager creates a manager persisting under dir and loads prior usage
// statistics best-effort: absence starts fresh, corruption is logged but does
// not abort startup.
func NewManager(dir string, shortTermSize int, opts ...ManagerOption) *Manager {
	m := &Manager{
		conversations: NewConversationStore(shortTermSize),
		usage:         NewUsageStats(),
		dir:           dir,
	}
	for _, opt := range opts {
		opt(m)
	}
	result := m.usage.Load(m.statsPath())
	switch result.Status {
	case Loaded:
		if m.logger != nil {
			m.logger.Info("usage statistics loaded",
				zap.Int("query_patterns", m.usage.QueryPatternCount()))
		}
	case NotFound:
		if m.logger != nil {
			m.logger.Info("no prior usage statistics, starting fresh")
		}
	case Corrupt:
		if m.logger != nil {
			m.logger.Warn("usage statistics file is corrupt, starting fresh", zap.Error(result.Err))
		}
	}
	return m
}

func (m *Manager) statsPath() string {
	return filepath.Join(m.dir, statsFileName)
}

// AddInteraction records one completed query: it appends the conversation
// turn, updates query-pattern and per-chunk access counts, and feeds the
// inferred dominant topic type into the preference tally.
func (m *Manager) AddInteraction(query, response string, retrieved []models.QueryResult, language string) {
	chunkIDs := make([]string, len(retrieved))
	for i, r := range retrieved {
		chunkIDs[i] = r.ID
	}
	m.conversations.Append(query, response, language, chunkIDs)
	m.usage.RecordQueryPattern(query, language, retrieved)
	for _, r := range retrieved {
		m.usage.RecordDocumentAccess(r.ID, models.ChunkTypeOf(r))
	}
	m.usage.RecordPreference(language, inferTopicType(retrieved))
}

// inferTopicType returns the most frequent chunk type among retrieved results,
// ties broken lexicographically; "unknown" when nothing was retrieved.
func inferTopicType(retrieved []models.QueryResult) string {
	if len(retrieved) == 0 {
		return "unknown"
	}
	counts := make(map[string]int)
	for _, r := range retrieved {
		counts[models.ChunkTypeOf(r)]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	best, bestCount := "unknown", 0
	for _, t := range types {
		if counts[t] > bestCount {
			best, bestCount = t, counts[t]
		}
	}
	return best
}

// ContextForQuery gathers recent turns, the rendered context block, similar
// past turns, suggestions, and the preferred language for one query.
func (m *Manager) ContextForQuery(query string) *QueryContext {
	return &QueryContext{
		RecentConversations: m.conversations.Recent(3),
		ConversationContext: m.conversations.ContextBlock(3),
		SimilarPastQueries:  m.conversations.SearchHistory(query),
		QuerySuggestions:    m.usage.Suggestions(query, 5),
		PreferredLanguage:   m.usage.PreferredLanguage(),
	}
}

// SaveAll persists the conversation session and usage statistics.
func (m *Manager) SaveAll() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	if _, err := m.conversations.SaveSession(m.dir); err != nil {
		return err
	}
	return m.usage.Save(m.statsPath())
}

// Conversations exposes the conversation store.
func (m *Manager) Conversations() *ConversationStore {
	return m.conversations
}

// Usage exposes the usage statistics store.
func (m *Manager) Usage() *UsageStats {
	return m.usage
}

// MemoryStats reports current memory usage.
func (m *Manager) MemoryStats() *Stats {
	return &Stats{
		ConversationCount: m.conversations.Len(),
		QueryPatternCount: m.usage.QueryPatternCount(),
		AccessRecordCount: m.usage.AccessRecordCount(),
		SessionID:         m.conversations.SessionID(),
		PreferredLanguage: m.usage.PreferredLanguage(),
		PopularDocuments:  m.usage.PopularDocuments(5),
	}
}

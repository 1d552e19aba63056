package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/banglatutor/aparichita/internal/models"
)

// LoadStatus distinguishes a first-run absence from actual corruption when
// loading persisted statistics.
type LoadStatus int

const (
	// Loaded means the file existed and parsed.
	Loaded LoadStatus = iota
	// NotFound means no prior file exists; the store starts empty.
	NotFound
	// Corrupt means the file exists but could not be read or parsed.
	Corrupt
)

// LoadResult reports the outcome of loading persisted statistics.
type LoadResult struct {
	Status LoadStatus
	Err    error
}

// UsageStats accumulates query-pattern frequency, per-chunk access counts, and
// language/topic preference tallies. The maps grow without eviction; the query
// space in this domain is small and finite, so that growth is accepted.
type UsageStats struct {
	mu                 sync.Mutex
	queryPatterns      map[string]*models.QueryPattern
	documentAccess     map[string]*models.AccessRecord
	languagePreference map[string]int
	topicPreference    map[string]int
}

// statsFile is the persisted shape of UsageStats.
type statsFile struct {
	QueryPatterns      map[string]*models.QueryPattern `json:"query_patterns"`
	DocumentAccess     map[string]*models.AccessRecord `json:"document_access_frequency"`
	LanguagePreference map[string]int                  `json:"language_preference"`
	TopicPreference    map[string]int                  `json:"topic_preference"`
	SavedAt            time.Time                       `json:"saved_at"`
}

// NewUsageStats creates empty statistics.
func NewUsageStats() *UsageStats {
	return &UsageStats{
		queryPatterns:      make(map[string]*models.QueryPattern),
		documentAccess:     make(map[string]*models.AccessRecord),
		languagePreference: make(map[string]int),
		topicPreference:    make(map[string]int),
	}
}

// RecordQueryPattern counts one occurrence of query in language, tallying the
// chunk types it retrieved. The pattern key is the lowercased, trimmed query.
func (u *UsageStats) RecordQueryPattern(query, language string, results []models.QueryResult) {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return
	}
	now := time.Now()
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.queryPatterns[key]
	if !ok {
		p = &models.QueryPattern{
			Languages: make(map[string]int),
			DocTypes:  make(map[string]int),
			FirstSeen: now,
		}
		u.queryPatterns[key] = p
	}
	p.Count++
	p.LastSeen = now
	p.Languages[language]++
	for _, r := range results {
		p.DocTypes[models.ChunkTypeOf(r)]++
	}
}

// RecordDocumentAccess counts one retrieval of the chunk docID.
func (u *UsageStats) RecordDocumentAccess(docID, docType string) {
	now := time.Now()
	u.mu.Lock()
	defer u.mu.Unlock()
	rec, ok := u.documentAccess[docID]
	if !ok {
		rec = &models.AccessRecord{Type: docType, FirstAccessed: now}
		u.documentAccess[docID] = rec
	}
	rec.Count++
	rec.LastAccessed = now
}

// RecordPreference tallies one observation of language and topic type.
func (u *UsageStats) RecordPreference(language, topicType string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.languagePreference[language]++
	u.topicPreference[topicType]++
}

// PopularDocuments returns the most-accessed chunk ids, descending by count,
// ties broken by id for stable output.
func (u *UsageStats) PopularDocuments(limit int) []models.DocumentAccess {
	u.mu.Lock()
	defer u.mu.Unlock()
	docs := make([]models.DocumentAccess, 0, len(u.documentAccess))
	for id, rec := range u.documentAccess {
		docs = append(docs, models.DocumentAccess{DocID: id, Record: rec})
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Record.Count != docs[j].Record.Count {
			return docs[i].Record.Count > docs[j].Record.Count
		}
		return docs[i].DocID < docs[j].DocID
	})
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}

// Suggestions returns historical queries containing partial (case-insensitive)
// that were asked more than once, ranked descending by count.
func (u *UsageStats) Suggestions(partial string, limit int) []string {
	needle := strings.ToLower(strings.TrimSpace(partial))
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []string
	for q, p := range u.queryPatterns {
		if p.Count > 1 && strings.Contains(q, needle) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := u.queryPatterns[out[i]].Count, u.queryPatterns[out[j]].Count
		if ci != cj {
			return ci > cj
		}
		return out[i] < out[j]
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// PreferredLanguage returns the most-tallied language, defaulting to Bengali.
func (u *UsageStats) PreferredLanguage() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	best, bestCount := "bn", 0
	langs := make([]string, 0, len(u.languagePreference))
	for lang := range u.languagePreference {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if n := u.languagePreference[lang]; n > bestCount {
			best, bestCount = lang, n
		}
	}
	return best
}

// QueryPatternCount returns the number of distinct recorded query patterns.
func (u *UsageStats) QueryPatternCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.queryPatterns)
}

// AccessRecordCount returns the number of distinct accessed chunk ids.
func (u *UsageStats) AccessRecordCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.documentAccess)
}

// Save writes the three maps plus a save timestamp to path.
func (u *UsageStats) Save(path string) error {
	u.mu.Lock()
	file := statsFile{
		QueryPatterns:      u.queryPatterns,
		DocumentAccess:     u.documentAccess,
		LanguagePreference: u.languagePreference,
		TopicPreference:    u.topicPreference,
		SavedAt:            time.Now(),
	}
	data, err := json.MarshalIndent(file, "", "  ")
	u.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}

// Load replaces the maps with persisted data. An absent file is NotFound and
// leaves the store empty; an unreadable or unparseable file is Corrupt.
func (u *UsageStats) Load(path string) LoadResult {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return LoadResult{Status: NotFound}
		}
		return LoadResult{Status: Corrupt, Err: err}
	}
	var file statsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return LoadResult{Status: Corrupt, Err: err}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if file.QueryPatterns != nil {
		u.queryPatterns = file.QueryPatterns
	}
	if file.DocumentAccess != nil {
		u.documentAccess = file.DocumentAccess
	}
	if file.LanguagePreference != nil {
		u.languagePreference = file.LanguagePreference
	}
	if file.TopicPreference != nil {
		u.topicPreference = file.TopicPreference
	}
	return LoadResult{Status: Loaded}
}

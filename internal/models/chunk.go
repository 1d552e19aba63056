// Package models defines core data structures for chunks, query results, and conversation memory.
package models

// ChunkType identifies the content category of a chunk. The set is closed:
// every chunk stored in the index carries exactly one of these.
type ChunkType string

const (
	ChunkStory       ChunkType = "story"
	ChunkMCQ         ChunkType = "mcq"
	ChunkCreative    ChunkType = "creative"
	ChunkWordMeaning ChunkType = "word_meaning"
	ChunkCharacter   ChunkType = "character"
)

// Chunk is the atomic retrievable unit. Content is the canonical Bengali-first
// rendering used both for embedding and for display; Metadata always carries
// "type" and "doc_id" plus type-specific fields. Once indexed, Content and
// Metadata are the complete record.
type Chunk struct {
	ID       string         `json:"id"`
	Type     ChunkType      `json:"type"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// QueryResult is a single nearest-neighbor hit. Distance is a non-negative
// dissimilarity (0 = identical); nil when the lookup produced no distance,
// which must not be conflated with a perfect match.
type QueryResult struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Distance *float64       `json:"distance"`
}

// ChunkTypeOf returns the "type" metadata value of a result, or "unknown".
func ChunkTypeOf(r QueryResult) string {
	if r.Metadata != nil {
		if t, ok := r.Metadata["type"].(string); ok && t != "" {
			return t
		}
	}
	return "unknown"
}

// IndexStats summarizes the indexed collection. CountsByType is computed from
// a bounded sample of the first min(100, TotalCount) entries, so it is exact
// for small corpora and approximate beyond the sample bound.
type IndexStats struct {
	TotalCount   int            `json:"total_documents"`
	CountsByType map[string]int `json:"content_types"`
	Collection   string         `json:"collection_name"`
}

package models

import "time"

// ConversationTurn is one completed user/assistant exchange. RetrievedChunkIDs
// references the chunks used to answer; the chunks themselves live in the index.
type ConversationTurn struct {
	Timestamp         time.Time `json:"timestamp"`
	UserQuery         string    `json:"user_query"`
	AssistantResponse string    `json:"assistant_response"`
	Language          string    `json:"language"`
	RetrievedChunkIDs []string  `json:"retrieved_chunks"`
	SessionID         string    `json:"session_id"`
}

// QueryPattern accumulates how often a normalized query has been asked,
// in which languages, and which chunk types it retrieved.
type QueryPattern struct {
	Count     int            `json:"count"`
	Languages map[string]int `json:"languages"`
	DocTypes  map[string]int `json:"common_doc_types"`
	FirstSeen time.Time      `json:"first_seen"`
	LastSeen  time.Time      `json:"last_seen"`
}

// AccessRecord tracks how often a single chunk was retrieved.
type AccessRecord struct {
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	FirstAccessed time.Time `json:"first_accessed"`
	LastAccessed  time.Time `json:"last_accessed"`
}

// DocumentAccess pairs a chunk id with its access record, for popularity listings.
type DocumentAccess struct {
	DocID  string        `json:"doc_id"`
	Record *AccessRecord `json:"record"`
}

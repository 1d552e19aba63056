// Package memory tracks short-term conversation turns and long-term usage
// statistics, with best-effort JSON persistence between sessions.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/banglatutor/aparichita/internal/models"
)

// DefaultShortTermSize is the conversation ring buffer capacity.
const DefaultShortTermSize = 10

// ConversationStore is a fixed-capacity FIFO of conversation turns for one
// session. Appends are serialized; conversation history is inherently
// per-session sequential.
type ConversationStore struct {
	mu        sync.Mutex
	maxSize   int
	turns     []models.ConversationTurn
	sessionID string
}

// sessionFile is the persisted shape of one conversation session.
type sessionFile struct {
	SessionID     string                    `json:"session_id"`
	Conversations []models.ConversationTurn `json:"conversations"`
	SavedAt       time.Time                 `json:"saved_at"`
}

// NewConversationStore creates a store holding at most maxSize turns, with a
// session id derived from the current time.
func NewConversationStore(maxSize int) *ConversationStore {
	if maxSize <= 0 {
		maxSize = DefaultShortTermSize
	}
	return &ConversationStore{
		maxSize:   maxSize,
		sessionID: newSessionID(time.Now()),
	}
}

func newSessionID(t time.Time) string {
	return t.Format("20060102_150405")
}

// Append records a completed turn, evicting the oldest once capacity is exceeded.
func (c *ConversationStore) Append(userQuery, assistantResponse, language string, retrievedChunkIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, models.ConversationTurn{
		Timestamp:         time.Now(),
		UserQuery:         userQuery,
		AssistantResponse: assistantResponse,
		Language:          language,
		RetrievedChunkIDs: retrievedChunkIDs,
		SessionID:         c.sessionID,
	})
	if len(c.turns) > c.maxSize {
		c.turns = c.turns[len(c.turns)-c.maxSize:]
	}
}

// Recent returns the last n turns, oldest first. n is clamped to the available count.
func (c *ConversationStore) Recent(n int) []models.ConversationTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 {
		return nil
	}
	if n > len(c.turns) {
		n = len(c.turns)
	}
	out := make([]models.ConversationTurn, n)
	copy(out, c.turns[len(c.turns)-n:])
	return out
}

// ContextBlock renders the last n turns as a two-line-per-turn text block
// suitable for prompt context.
func (c *ConversationStore) ContextBlock(n int) string {
	var b strings.Builder
	for i, turn := range c.Recent(n) {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "User: %s\nAssistant: %s", turn.UserQuery, turn.AssistantResponse)
	}
	return b.String()
}

// SearchHistory returns stored turns whose query or response contains query,
// case-insensitively.
func (c *ConversationStore) SearchHistory(query string) []models.ConversationTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	needle := strings.ToLower(query)
	var matches []models.ConversationTurn
	for _, turn := range c.turns {
		if strings.Contains(strings.ToLower(turn.UserQuery), needle) ||
			strings.Contains(strings.ToLower(turn.AssistantResponse), needle) {
			matches = append(matches, turn)
		}
	}
	return matches
}

// Len returns the number of stored turns.
func (c *ConversationStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// SessionID returns the current session identifier.
func (c *ConversationStore) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// SaveSession writes the buffer to dir as conversation_session_<id>.json and
// returns the file path.
func (c *ConversationStore) SaveSession(dir string) (string, error) {
	c.mu.Lock()
	file := sessionFile{
		SessionID:     c.sessionID,
		Conversations: append([]models.ConversationTurn(nil), c.turns...),
		SavedAt:       time.Now(),
	}
	c.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("conversation_session_%s.json", file.SessionID))
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write session: %w", err)
	}
	return path, nil
}

// LoadSession replaces the buffer and session id with a previously saved
// session, keeping at most the newest maxSize turns.
func (c *ConversationStore) LoadSession(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	var file sessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse session: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = file.SessionID
	c.turns = file.Conversations
	if len(c.turns) > c.maxSize {
		c.turns = c.turns[len(c.turns)-c.maxSize:]
	}
	return nil
}

// Clear empties the buffer and starts a fresh session id.
func (c *ConversationStore) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
	c.sessionID = newSessionID(time.Now())
}

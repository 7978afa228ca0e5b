package stores

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore implements MessageStore entirely in memory. It backs sessions
// that don't need durability (one-shot lessons, tests) while keeping the same
// ordering contract as the database stores.
type MemoryStore struct {
	mu            sync.Mutex
	nextID        uint
	messages      map[string][]Message
	conversations map[string]*Conversation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages:      make(map[string][]Message),
		conversations: make(map[string]*Conversation),
	}
}

// Connect is a no-op for the in-memory store.
func (s *MemoryStore) Connect() error { return nil }

// Close discards all stored conversations.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = make(map[string][]Message)
	s.conversations = make(map[string]*Conversation)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping() error { return nil }

// SaveMessage appends a message to a conversation, creating the conversation
// record on first use.
func (s *MemoryStore) SaveMessage(sessionID, role, messageType string, parts interface{}, functionID string) error {
	partsJSONBytes, err := json.Marshal(parts)
	if err != nil {
		return fmt.Errorf("failed to marshal parts: %w", err)
	}
	partsJSONStr := string(partsJSONBytes)
	if parts == nil || partsJSONStr == "null" || partsJSONStr == "[]" {
		partsJSONStr = "{}"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		conv = &Conversation{ConversationID: sessionID}
		conv.CreatedAt = time.Now()
		s.conversations[sessionID] = conv
	}

	s.nextID++
	msg := Message{
		ConversationID: sessionID,
		Sequence:       len(s.messages[sessionID]) + 1,
		Role:           role,
		Type:           messageType,
		PartsJSON:      partsJSONStr,
		FunctionID:     functionID,
	}
	msg.ID = s.nextID
	msg.CreatedAt = time.Now()
	msg.UpdatedAt = msg.CreatedAt

	s.messages[sessionID] = append(s.messages[sessionID], msg)
	conv.MessageCount = msg.Sequence
	conv.UpdatedAt = msg.CreatedAt
	return nil
}

// FetchHistory returns a copy of a conversation's messages in sequence order.
func (s *MemoryStore) FetchHistory(sessionID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[sessionID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// CreateConversation creates a new conversation record
func (s *MemoryStore) CreateConversation(convoID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[convoID]; exists {
		return fmt.Errorf("conversation %s already exists", convoID)
	}
	conv := &Conversation{ConversationID: convoID, UserID: userID}
	conv.CreatedAt = time.Now()
	conv.UpdatedAt = conv.CreatedAt
	s.conversations[convoID] = conv
	return nil
}

// ListConversations returns all conversation IDs
func (s *MemoryStore) ListConversations() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	return ids, nil
}

// ListConversationsForUser returns all conversations with details for a specific user
func (s *MemoryStore) ListConversationsForUser(userID string) ([]ConversationInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []ConversationInfo
	for _, c := range s.conversations {
		if c.UserID != userID {
			continue
		}
		result = append(result, ConversationInfo{
			ConversationID: c.ConversationID,
			UserID:         c.UserID,
			Title:          c.Title,
			MessageCount:   c.MessageCount,
			CreatedAt:      c.CreatedAt.Format(time.RFC3339),
			UpdatedAt:      c.UpdatedAt.Format(time.RFC3339),
		})
	}
	return result, nil
}

// DeleteConversationsBefore removes conversations last updated before cutoff.
func (s *MemoryStore) DeleteConversationsBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, c := range s.conversations {
		if c.UpdatedAt.Before(cutoff) {
			delete(s.conversations, id)
			delete(s.messages, id)
			removed++
		}
	}
	return removed, nil
}

package stores

import (
	"time"

	"gorm.io/gorm"
)

// Message represents any chat message or function interaction within a
// conversation turn. Sequence increases monotonically per conversation so a
// transcript replays in insertion order.
type Message struct {
	gorm.Model
	ConversationID string `gorm:"index;not null"`
	Sequence       int    `gorm:"not null"`
	Role           string `gorm:"not null"` // "user", "model"
	Type           string `gorm:"not null"` // "user_message", "model_message", "function_call", "function_response"
	// FunctionID links a function_response row back to the function_call that produced it.
	FunctionID string `gorm:"index" json:"function_id,omitempty"`
	// PartsJSON stores the JSON marshaled array of content parts for this turn.
	// Either []models.User_Part or []models.Model_Part depending on Role/Type.
	PartsJSON string `gorm:"type:json"`
}

// Conversation holds metadata for a chat conversation
type Conversation struct {
	gorm.Model
	ConversationID string    `gorm:"uniqueIndex;not null"`
	UserID         string    `gorm:"index"`
	Title          string    `gorm:"type:text"`
	MessageCount   int       `gorm:"default:0"`
	Messages       []Message `gorm:"foreignKey:ConversationID;references:ConversationID"`
}

// ConversationInfo holds basic conversation metadata for listing
type ConversationInfo struct {
	ConversationID string
	UserID         string
	Title          string
	MessageCount   int
	CreatedAt      string
	UpdatedAt      string
}

// MessageStore abstracts conversation persistence so a session can run
// against SQLite, Postgres, or plain memory.
type MessageStore interface {
	// Message operations
	SaveMessage(sessionID, role, messageType string, parts interface{}, functionID string) error
	FetchHistory(sessionID string) ([]Message, error)

	// Conversation operations
	CreateConversation(convoID, userID string) error
	ListConversations() ([]string, error)
	ListConversationsForUser(userID string) ([]ConversationInfo, error)
	// DeleteConversationsBefore removes conversations (and their messages)
	// last updated before the cutoff. Used by the retention sweeper.
	DeleteConversationsBefore(cutoff time.Time) (int64, error)

	// Connection management
	Connect() error
	Close() error

	// Health check
	Ping() error
}

// StoreConfig holds configuration for database stores
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite", "postgres", "memory"
	Connection string            `json:"connection"` // connection string
	Options    map[string]string `json:"options"`    // additional options
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}

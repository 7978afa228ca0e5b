package models

import "time"

// ChatMessageResponse defines the structure for messages returned by the chat
// history API endpoint. It excludes internal DB fields but keeps the
// identifiers and timestamps a client needs to render a transcript.
type ChatMessageResponse struct {
	ID             uint        `json:"id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	ConversationID string      `json:"conversation_id"`
	Sequence       int         `json:"sequence"`
	Role           string      `json:"role"`                  // "user", "model"
	Type           string      `json:"type"`                  // "user_message", "model_message", "function_call", "function_response"
	FunctionID     string      `json:"function_id,omitempty"` // Associated function call ID
	Text           string      `json:"text,omitempty"`        // Primary text content, extracted from parts
	Parts          interface{} `json:"parts,omitempty"`       // Unmarshalled parts array
}

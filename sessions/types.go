package sessions

import (
	"errors"
	"log"
	"os"

	"github.com/Desarso/wayfarer/models"
	"github.com/Desarso/wayfarer/stores"
	"github.com/google/uuid"
)

// DefaultMaxToolCalls bounds the dispatch loop: at most this many rounds of
// model-requested function calls are relayed before the turn is cut off.
const DefaultMaxToolCalls = 10

// ErrToolCallLimit is returned when a turn hits the tool call ceiling while
// the model is still requesting calls. The accumulated Run_Result is still
// returned alongside it.
var ErrToolCallLimit = errors.New("tool call ceiling reached")

// AgentInterface defines the interface that agents must implement
type AgentInterface interface {
	Run(request models.Model_Request, history []stores.Message) (models.Model_Response, error)
	Run_Stream(request models.Model_Request, history []stores.Message) (<-chan models.Model_Response, <-chan error)
	ExecuteTool(name string, args map[string]interface{}, sessionID string) (string, error)
	CheckInput(input string) error
}

// TurnEvent is emitted to an observer as a turn progresses, so transports
// like the websocket endpoint can surface intermediate output.
type TurnEvent struct {
	Type       string              `json:"type"` // "model_parts", "tool_result"
	Parts      []models.Model_Part `json:"parts,omitempty"`
	ToolResult *models.Tool_Result `json:"tool_result,omitempty"`
}

// Session runs bounded agent turns against a persisted conversation. User
// prompts, model output, function calls and their responses are all appended
// to the store under ConversationID in arrival order.
type Session struct {
	Agent          AgentInterface
	ConversationID string
	Store          stores.MessageStore
	Logger         *log.Logger
	MaxToolCalls   int
	Observer       func(TurnEvent)
}

// Run_Result is the outcome of one full turn.
type Run_Result struct {
	Text      string              `json:"text"`
	Parts     []models.Model_Part `json:"parts"`
	ToolCalls int                 `json:"tool_calls"`
}

// NewSession creates a session for a conversation. An empty conversationID
// gets a generated one; a nil store falls back to process-local memory.
func NewSession(conversationID string, agent AgentInterface, store stores.MessageStore) *Session {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	if store == nil {
		store = stores.NewMemoryStore()
	}
	return &Session{
		Agent:          agent,
		ConversationID: conversationID,
		Store:          store,
		Logger:         log.New(os.Stderr, "[session "+conversationID+"] ", log.LstdFlags),
		MaxToolCalls:   DefaultMaxToolCalls,
	}
}

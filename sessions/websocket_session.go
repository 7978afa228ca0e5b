package sessions

import (
	"log"
	"sync"

	"github.com/Desarso/wayfarer/models"
	"github.com/Desarso/wayfarer/stores"
	"github.com/gorilla/websocket"
)

// WebSocketWriter serializes all writes to a websocket connection. Turn
// events and errors are sent as JSON frames.
type WebSocketWriter struct {
	Conn   *websocket.Conn
	Logger *log.Logger
	mu     sync.Mutex
}

func (w *WebSocketWriter) WriteEvent(event TurnEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(event)
}

func (w *WebSocketWriter) WriteError(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": "error", "error": message})
}

func (w *WebSocketWriter) WriteDone(result Run_Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]interface{}{"type": "done", "result": result})
}

// WSSession runs turns for a websocket client, forwarding intermediate model
// parts and tool results as they happen.
type WSSession struct {
	*Session
	Writer *WebSocketWriter
}

// NewWSSession wires a session's observer to the websocket writer.
func NewWSSession(conversationID string, agent AgentInterface, store stores.MessageStore, conn *websocket.Conn) *WSSession {
	session := NewSession(conversationID, agent, store)
	writer := &WebSocketWriter{Conn: conn, Logger: session.Logger}
	session.Observer = func(event TurnEvent) {
		if err := writer.WriteEvent(event); err != nil {
			session.Logger.Printf("Error writing turn event: %v", err)
		}
	}
	return &WSSession{Session: session, Writer: writer}
}

// RunTurn executes one bounded turn and closes it with a done or error frame.
func (ws *WSSession) RunTurn(request models.Model_Request) error {
	result, err := ws.Session.RunTurn(request)
	if err != nil {
		if writeErr := ws.Writer.WriteError(err.Error()); writeErr != nil {
			ws.Logger.Printf("Error writing error frame: %v", writeErr)
		}
		return err
	}
	return ws.Writer.WriteDone(result)
}

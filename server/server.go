package server

import (
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Desarso/wayfarer"
	"github.com/Desarso/wayfarer/models"
	"github.com/Desarso/wayfarer/sessions"
	"github.com/Desarso/wayfarer/stores"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server exposes an agent over HTTP and websocket endpoints backed by a
// message store.
type Server struct {
	Agent  *wayfarer.Agent
	Store  stores.MessageStore
	Logger *log.Logger
	// MaxToolCalls is the dispatch loop ceiling applied to each turn.
	// Zero means the session default.
	MaxToolCalls int
	// Retention is how long conversations are kept. Zero disables the
	// retention sweeper.
	Retention time.Duration

	cron *cron.Cron
}

// NewServer creates a server for an agent and store.
func NewServer(agent *wayfarer.Agent, store stores.MessageStore) *Server {
	return &Server{
		Agent:  agent,
		Store:  store,
		Logger: log.New(os.Stderr, "[server] ", log.LstdFlags),
	}
}

// NewServerFromConfig creates a server using the configuration's store and
// dispatch loop ceiling.
func NewServerFromConfig(agent *wayfarer.Agent, cfg *wayfarer.RunConfig) *Server {
	s := NewServer(agent, cfg.Store)
	s.MaxToolCalls = cfg.MaxToolCalls
	return s
}

// WithRetention enables the nightly retention sweeper with the given window.
func (s *Server) WithRetention(window time.Duration) *Server {
	s.Retention = window
	return s
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	r := router.Group("/api/v1")

	r.POST("/chat/:conversationID", s.handleChat)
	r.GET("/chat/history/:conversationID", s.handleHistory)
	r.GET("/conversations", s.handleListConversations)
	r.GET("/ws/chat/:conversationID", s.handleWSChat)
	r.GET("/health", s.handleHealth)

	return router
}

// Run starts the retention sweeper (if configured) and serves on addr.
func (s *Server) Run(addr string) error {
	s.startRetentionSweeper()
	defer s.stopRetentionSweeper()
	return s.Router().Run(addr)
}

// handleChat runs one full bounded turn and returns the final result. A turn
// that hits the tool call ceiling still returns its accumulated output,
// flagged as truncated.
func (s *Server) handleChat(c *gin.Context) {
	conversationID := c.Param("conversationID")

	var req models.Model_Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.User_Message == nil && req.Tool_Results == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request must contain either user message or tool results"})
		return
	}

	session := sessions.NewSession(conversationID, s.Agent, s.Store)
	if s.MaxToolCalls > 0 {
		session.MaxToolCalls = s.MaxToolCalls
	}

	result, err := session.RunTurn(req)
	if err != nil {
		switch {
		case errors.Is(err, sessions.ErrToolCallLimit):
			c.JSON(http.StatusOK, gin.H{"result": result, "truncated": true})
		case errors.Is(err, wayfarer.ErrGuardrailTripped):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (s *Server) handleHistory(c *gin.Context) {
	conversationID := c.Param("conversationID")

	session := sessions.NewSession(conversationID, s.Agent, s.Store)
	history, err := session.GetChatHistory()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (s *Server) handleListConversations(c *gin.Context) {
	if userID := c.Query("user_id"); userID != "" {
		conversations, err := s.Store.ListConversationsForUser(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversations": conversations})
		return
	}

	conversations, err := s.Store.ListConversations()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// handleWSChat upgrades the connection and runs a turn per incoming request
// frame, streaming intermediate parts and tool results back as they happen.
func (s *Server) handleWSChat(c *gin.Context) {
	conversationID := c.Param("conversationID")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Printf("Failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	session := sessions.NewWSSession(conversationID, s.Agent, s.Store, conn)
	if s.MaxToolCalls > 0 {
		session.MaxToolCalls = s.MaxToolCalls
	}

	for {
		var req models.Model_Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.Logger.Printf("Websocket read error: %v", err)
			}
			return
		}

		if err := session.RunTurn(req); err != nil {
			// Error frame already sent by the session; keep the
			// connection open for the next request.
			s.Logger.Printf("Turn failed for conversation %s: %v", conversationID, err)
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.Store.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// startRetentionSweeper schedules a nightly job that deletes conversations
// last updated before the retention window.
func (s *Server) startRetentionSweeper() {
	if s.Retention <= 0 {
		return
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc("@daily", func() {
		cutoff := time.Now().Add(-s.Retention)
		deleted, err := s.Store.DeleteConversationsBefore(cutoff)
		if err != nil {
			s.Logger.Printf("Retention sweep failed: %v", err)
			return
		}
		if deleted > 0 {
			s.Logger.Printf("Retention sweep removed %d conversations older than %s", deleted, cutoff.Format(time.RFC3339))
		}
	})
	if err != nil {
		s.Logger.Printf("Failed to schedule retention sweep: %v", err)
		return
	}
	s.cron.Start()
}

func (s *Server) stopRetentionSweeper() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

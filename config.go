package wayfarer

import (
	"github.com/Desarso/wayfarer/sessions"
	"github.com/Desarso/wayfarer/stores"
)

// RunConfig holds shared configuration for sessions and the HTTP server.
type RunConfig struct {
	ModelName    string
	MaxToolCalls int
	Store        stores.MessageStore
}

// NewRunConfig creates a configuration with default values: a local model
// and an in-memory store.
func NewRunConfig() *RunConfig {
	return &RunConfig{
		ModelName:    "llama3.2",
		MaxToolCalls: 10,
		Store:        stores.NewMemoryStore(),
	}
}

// WithModelName sets the model name for the configuration
func (c *RunConfig) WithModelName(modelName string) *RunConfig {
	c.ModelName = modelName
	return c
}

// WithMaxToolCalls sets the dispatch loop ceiling
func (c *RunConfig) WithMaxToolCalls(max int) *RunConfig {
	c.MaxToolCalls = max
	return c
}

// WithStore sets the message store for the configuration
func (c *RunConfig) WithStore(store stores.MessageStore) *RunConfig {
	c.Store = store
	return c
}

// NewSession creates a session backed by the configuration's store,
// with the configured dispatch loop ceiling applied.
func (c *RunConfig) NewSession(conversationID string, agent *Agent) *sessions.Session {
	session := sessions.NewSession(conversationID, agent, c.Store)
	session.MaxToolCalls = c.MaxToolCalls
	return session
}

// WithSQLiteStore sets a SQLite store with the specified database path
func (c *RunConfig) WithSQLiteStore(dbPath string) *RunConfig {
	store, err := stores.NewSQLiteStoreSimple(dbPath)
	if err != nil {
		panic("Failed to create SQLite store: " + err.Error())
	}
	c.Store = store
	return c
}

// WithPostgresStore sets a PostgreSQL store with the specified connection parameters
func (c *RunConfig) WithPostgresStore(host, user, password, dbname string, port int) *RunConfig {
	store, err := stores.NewPostgresStoreDefault(host, user, password, dbname, port)
	if err != nil {
		panic("Failed to create PostgreSQL store: " + err.Error())
	}
	c.Store = store
	return c
}

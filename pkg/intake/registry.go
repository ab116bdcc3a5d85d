package intake

import (
	"context"
	"sync"

	"github.com/carepath-ai/platform/pkg/assist"
	"github.com/carepath-ai/platform/pkg/conversation"
	"github.com/carepath-ai/platform/pkg/session"
	"github.com/carepath-ai/platform/pkg/simulation"
)

// Clients groups the remote assist-service facets the registry wires into
// each session's state machines.
type Clients struct {
	Conversation assist.ConversationClient
	Simulation   assist.SimulationClient
}

// Entry bundles the per-session state: the persisted record context plus
// the in-memory conversation and simulation machines.
type Entry struct {
	Session      *session.Context
	Conversation *conversation.Conversation
	Simulation   *simulation.Loader
}

// Registry owns one Entry per active browser session. Entries are created
// lazily on first touch and dropped when the session is cleared, which
// resets the conversation and simulation to their initial states.
type Registry struct {
	mu      sync.Mutex
	store   session.Store
	clients Clients
	opts    conversation.Options
	entries map[string]*Entry
}

func NewRegistry(store session.Store, clients Clients, opts conversation.Options) *Registry {
	return &Registry{
		store:   store,
		clients: clients,
		opts:    opts,
		entries: make(map[string]*Entry),
	}
}

// Acquire returns the entry for sessionID, rehydrating records from the
// store on first touch.
func (r *Registry) Acquire(ctx context.Context, sessionID string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[sessionID]; ok {
		return entry
	}

	sessionCtx := session.NewContext(ctx, r.store, sessionID)
	entry := &Entry{
		Session:      sessionCtx,
		Conversation: conversation.New(r.clients.Conversation, sessionCtx, r.opts),
		Simulation:   simulation.NewLoader(r.clients.Simulation, sessionCtx),
	}
	r.entries[sessionID] = entry
	return entry
}

// Drop discards the in-memory state for sessionID. Persisted records are
// the caller's concern.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
}

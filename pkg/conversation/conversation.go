package conversation

import (
	"context"
	"errors"
	"sync"

	"github.com/carepath-ai/platform/pkg/assist"
	"github.com/carepath-ai/platform/pkg/common/logger"
	"github.com/carepath-ai/platform/pkg/common/models"
	"github.com/carepath-ai/platform/pkg/session"
	"github.com/carepath-ai/platform/pkg/speech"
	"github.com/carepath-ai/platform/pkg/visualization"
)

// State names the phases of the intake turn cycle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateSending       State = "sending"
)

var (
	// ErrTurnInFlight rejects a second send while one is outstanding.
	ErrTurnInFlight = errors.New("conversation: turn already in flight")
	// ErrNotReady rejects sends before the conversation has been started.
	ErrNotReady = errors.New("conversation: not started")
)

// fallbackGreeting seeds the conversation locally when the assist service
// cannot be reached, so the user is never left without an entry point.
const fallbackGreeting = "Hello! Please describe your symptoms. Where are you experiencing pain or discomfort?"

// TurnResult is the outcome of one successful conversation turn.
type TurnResult struct {
	Messages  []models.Message `json:"messages"`
	AudioData string           `json:"audio_data,omitempty"`
}

// Options configures the optional spoken reply.
type Options struct {
	Synthesizer speech.Synthesizer
	Language    string
	VoiceType   string
}

// Conversation drives the turn-based symptom intake exchange for one
// session. The message list is replaced wholesale by each authoritative
// service reply; a failed turn leaves it untouched. At most one turn is in
// flight at a time.
type Conversation struct {
	mu      sync.Mutex
	client  assist.ConversationClient
	session *session.Context
	opts    Options

	state          State
	conversationID string
	messages       []models.Message
}

func New(client assist.ConversationClient, sessionCtx *session.Context, opts Options) *Conversation {
	return &Conversation{
		client:  client,
		session: sessionCtx,
		opts:    opts,
		state:   StateUninitialized,
	}
}

// Start opens the conversation with the assist service. On remote failure
// it still transitions to Ready with a locally seeded greeting; Start never
// strands the conversation in Uninitialized. Calling Start on an already
// started conversation is a no-op.
func (c *Conversation) Start(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateUninitialized {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	start, err := c.client.StartConversation(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateUninitialized {
		return
	}
	if err != nil {
		logger.Log.WithError(err).Warn("failed to start intake conversation, seeding local greeting")
		c.messages = []models.Message{{Role: models.RoleSystem, Content: fallbackGreeting}}
		c.state = StateReady
		return
	}

	c.conversationID = start.ConversationID
	c.messages = start.Messages
	if len(c.messages) == 0 {
		c.messages = []models.Message{{Role: models.RoleSystem, Content: fallbackGreeting}}
	}
	c.state = StateReady
	c.applySymptoms(ctx, start.Symptoms)
}

// Send submits one user message. Typed text and transcribed audio both
// arrive here. On success the service reply replaces the message list and
// the session symptom record; on failure the state returns to Ready with
// no message-list mutation.
func (c *Conversation) Send(ctx context.Context, text string) (TurnResult, error) {
	c.mu.Lock()
	switch c.state {
	case StateUninitialized:
		c.mu.Unlock()
		return TurnResult{}, ErrNotReady
	case StateSending:
		c.mu.Unlock()
		return TurnResult{}, ErrTurnInFlight
	}
	c.state = StateSending
	conversationID := c.conversationID
	c.mu.Unlock()

	turn, err := c.client.SendMessage(ctx, conversationID, text)

	c.mu.Lock()
	c.state = StateReady
	if err != nil {
		c.mu.Unlock()
		return TurnResult{}, err
	}
	c.messages = turn.Messages
	messages := c.snapshotMessagesLocked()
	c.mu.Unlock()

	c.applySymptoms(ctx, turn.Symptoms)

	result := TurnResult{Messages: messages}
	if audio := c.speakLatestReply(ctx, messages); audio != "" {
		result.AudioData = audio
	}
	return result, nil
}

func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conversation) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotMessagesLocked()
}

func (c *Conversation) snapshotMessagesLocked() []models.Message {
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// applySymptoms pushes the normalized symptom payload into the session
// context and rederives the visualization from it.
func (c *Conversation) applySymptoms(ctx context.Context, record models.SymptomRecord) {
	c.session.UpdateSymptoms(ctx, record)
	c.session.UpdateVisualization(ctx, visualization.Derive(record.PainAreas, record.EmotionalState))
}

// speakLatestReply synthesizes the newest system message. Failures are
// silent; speech never blocks or fails the conversation flow.
func (c *Conversation) speakLatestReply(ctx context.Context, messages []models.Message) string {
	if c.opts.Synthesizer == nil {
		return ""
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != models.RoleSystem {
			continue
		}
		audio, err := c.opts.Synthesizer.Synthesize(ctx, messages[i].Content, c.opts.Language, c.opts.VoiceType)
		if err != nil {
			logger.Log.WithError(err).Debug("failed to synthesize reply audio")
			return ""
		}
		return audio
	}
	return ""
}

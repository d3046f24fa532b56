package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

// Phase is the send state of a Conversation.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	// PhaseError is only observed transiently through OnChange; the
	// conversation returns to PhaseIdle right after.
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ChangeFunc observes conversation updates.
type ChangeFunc func(state domain.ConversationState, phase Phase)

type previewUpdater interface {
	UpdatePreview(ctx context.Context, id, text string) bool
}

// Conversation holds the message log of the active session and drives the
// send/receive cycle.
type Conversation struct {
	backend  Backend
	previews previewUpdater

	mu         sync.Mutex
	sessionID  string
	messages   []domain.Message
	typing     bool
	phase      Phase
	generation uint64
	onChange   ChangeFunc
}

func NewConversation(backend Backend, previews previewUpdater) *Conversation {
	return &Conversation{backend: backend, previews: previews}
}

// OnChange registers fn to observe every state transition.
func (c *Conversation) OnChange(fn ChangeFunc) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Reload switches the conversation to sessionID and replaces the log with
// the session's backend history. A failed fetch leaves the log empty.
// A reply still in flight for the previous session is discarded.
func (c *Conversation) Reload(ctx context.Context, sessionID string) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.sessionID = sessionID
	c.messages = nil
	c.typing = false
	c.phase = PhaseIdle
	c.mu.Unlock()
	c.emit()

	if sessionID == "" {
		return
	}

	history, err := c.backend.FetchHistory(ctx, sessionID)
	if err != nil {
		slog.Warn("fetch history", "session_id", sessionID, "error", err)
		return
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.messages = append([]domain.Message(nil), history...)
	c.mu.Unlock()
	c.emit()
}

// Send appends text as a user message and waits for the bot reply. On
// failure a fixed error message is appended in place of the reply and
// returned together with the error.
func (c *Conversation) Send(ctx context.Context, text string) (domain.Message, error) {
	p, err := c.start(ctx, text)
	if err != nil {
		return domain.Message{}, err
	}
	return c.complete(ctx, p)
}

type pendingSend struct {
	sessionID  string
	text       string
	generation uint64
}

// start performs the optimistic half of Send.
func (c *Conversation) start(ctx context.Context, text string) (pendingSend, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return pendingSend{}, domain.ErrEmptyMessage
	}

	c.mu.Lock()
	if c.sessionID == "" {
		c.mu.Unlock()
		return pendingSend{}, domain.ErrNoActiveSession
	}
	if c.typing {
		c.mu.Unlock()
		return pendingSend{}, domain.ErrBusy
	}
	c.messages = append(c.messages, domain.Message{Sender: domain.SenderUser, Text: text})
	c.typing = true
	c.phase = PhaseSending
	p := pendingSend{sessionID: c.sessionID, text: text, generation: c.generation}
	c.mu.Unlock()
	c.emit()

	if c.previews != nil {
		c.previews.UpdatePreview(ctx, p.sessionID, text)
	}
	return p, nil
}

func (c *Conversation) complete(ctx context.Context, p pendingSend) (domain.Message, error) {
	reply, err := c.backend.SendMessage(ctx, p.sessionID, p.text)

	c.mu.Lock()
	if p.generation != c.generation {
		c.mu.Unlock()
		slog.Info("dropping reply for inactive session", "session_id", p.sessionID)
		if err != nil {
			return domain.Message{}, fmt.Errorf("send message: %w", err)
		}
		return reply, nil
	}

	if err == nil {
		c.messages = append(c.messages, reply)
		c.typing = false
		c.phase = PhaseIdle
		c.mu.Unlock()
		c.emit()
		return reply, nil
	}

	placeholder := domain.Message{Sender: domain.SenderBot, Text: config.SendErrorText}
	c.messages = append(c.messages, placeholder)
	c.typing = false
	c.phase = PhaseError
	c.mu.Unlock()
	c.emit()

	c.mu.Lock()
	if p.generation == c.generation {
		c.phase = PhaseIdle
	}
	c.mu.Unlock()
	c.emit()

	slog.Error("send message", "session_id", p.sessionID, "error", err)
	return placeholder, fmt.Errorf("send message: %w", err)
}

func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Conversation) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Message(nil), c.messages...)
}

func (c *Conversation) Typing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing
}

func (c *Conversation) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Conversation) snapshot() domain.ConversationState {
	return domain.ConversationState{
		SessionID: c.sessionID,
		Messages:  append([]domain.Message(nil), c.messages...),
		Typing:    c.typing,
	}
}

func (c *Conversation) emit() {
	c.mu.Lock()
	fn := c.onChange
	state := c.snapshot()
	phase := c.phase
	c.mu.Unlock()

	if fn != nil {
		fn(state, phase)
	}
}

package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/set-night/mindchat/internal/domain"
)

// Chat ties a SessionStore and its Conversation together for one owner.
// Operations that would switch the active session are refused with ErrBusy
// while a reply is pending.
type Chat struct {
	store *SessionStore
	conv  *Conversation

	mu       sync.Mutex
	lastUsed atomic.Int64
}

func NewChat(backend Backend, persist Persistence, maxSessions int) *Chat {
	store := NewSessionStore(backend, persist, maxSessions)
	conv := NewConversation(backend, store)
	store.Subscribe(conv.Reload)
	c := &Chat{store: store, conv: conv}
	c.touch()
	return c
}

// Initialize loads persisted sessions and the active session's history,
// bootstrapping a session when none exists.
func (c *Chat) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	return c.store.Initialize(ctx)
}

func (c *Chat) CreateSession(ctx context.Context) (domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.conv.Typing() {
		return domain.Session{}, fmt.Errorf("create session: %w", domain.ErrBusy)
	}
	return c.store.CreateSession(ctx)
}

func (c *Chat) ResumeSession(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if id != c.store.ActiveID() && c.conv.Typing() {
		return fmt.Errorf("resume session: %w", domain.ErrBusy)
	}
	return c.store.ResumeSession(ctx, id)
}

// DeleteSession removes id. Deleting an inactive session is allowed while a
// reply is pending.
func (c *Chat) DeleteSession(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if id == c.store.ActiveID() && c.conv.Typing() {
		return fmt.Errorf("delete session: %w", domain.ErrBusy)
	}
	return c.store.DeleteSession(ctx, id)
}

func (c *Chat) DeleteAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.conv.Typing() {
		return fmt.Errorf("delete all sessions: %w", domain.ErrBusy)
	}
	return c.store.DeleteAll(ctx)
}

// Reset clears the active conversation and starts over in a fresh session.
func (c *Chat) Reset(ctx context.Context) (domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.conv.Typing() {
		return domain.Session{}, fmt.Errorf("reset session: %w", domain.ErrBusy)
	}
	return c.store.Reset(ctx)
}

// Send posts text to the active session. The user message is visible in
// Messages before Send returns.
func (c *Chat) Send(ctx context.Context, text string) (domain.Message, error) {
	c.mu.Lock()
	c.touch()
	p, err := c.conv.start(ctx, text)
	c.mu.Unlock()
	if err != nil {
		return domain.Message{}, err
	}
	return c.conv.complete(ctx, p)
}

func (c *Chat) Sessions() []domain.Session {
	return c.store.Sessions()
}

func (c *Chat) ActiveID() string {
	return c.store.ActiveID()
}

func (c *Chat) Active() (domain.Session, bool) {
	return c.store.Active()
}

func (c *Chat) Messages() []domain.Message {
	return c.conv.Messages()
}

func (c *Chat) Typing() bool {
	return c.conv.Typing()
}

func (c *Chat) Phase() Phase {
	return c.conv.Phase()
}

// OnChange forwards to the conversation's change hook.
func (c *Chat) OnChange(fn ChangeFunc) {
	c.conv.OnChange(fn)
}

// LastUsed reports when the chat last received an operation.
func (c *Chat) LastUsed() time.Time {
	return time.Unix(0, c.lastUsed.Load())
}

func (c *Chat) touch() {
	c.lastUsed.Store(time.Now().UnixNano())
}

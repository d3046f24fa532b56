package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/domain"
)

// Mock is an in-memory chat service for tests and offline use. Failures are
// injected per operation through Fail; OnSend replaces the default echo reply.
type Mock struct {
	mu       sync.Mutex
	sessions map[string][]domain.Message
	fail     map[string]error
	calls    map[string]int

	// OnSend, when set, produces the reply text. It runs without the mock lock
	// held, so it may block.
	OnSend func(ctx context.Context, sessionID, text string) (string, error)
}

func NewMock() *Mock {
	return &Mock{
		sessions: make(map[string][]domain.Message),
		fail:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Fail makes every later call of op return err. A nil err clears the failure.
func (m *Mock) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// Calls returns how many times op was invoked.
func (m *Mock) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Seed stores history for a session as if it had been created earlier.
func (m *Mock) Seed(sessionID string, msgs ...domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append([]domain.Message(nil), msgs...)
}

// History returns the stored messages of a session.
func (m *Mock) History(sessionID string) []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Message(nil), m.sessions[sessionID]...)
}

func (m *Mock) begin(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	if err := m.fail[op]; err != nil {
		return &RequestError{Op: op, Kind: err, Err: fmt.Errorf("mock %s failure", op)}
	}
	return nil
}

func (m *Mock) CreateSession(ctx context.Context) (string, error) {
	if err := m.begin(OpNewSession); err != nil {
		return "", err
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()
	return id, nil
}

func (m *Mock) FetchHistory(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if err := m.begin(OpGetHistory); err != nil {
		return nil, err
	}
	return m.History(sessionID), nil
}

func (m *Mock) SendMessage(ctx context.Context, sessionID, text string) (domain.Message, error) {
	if err := m.begin(OpPostMessage); err != nil {
		return domain.Message{}, err
	}

	reply := "echo: " + text
	if m.OnSend != nil {
		var err error
		reply, err = m.OnSend(ctx, sessionID, text)
		if err != nil {
			return domain.Message{}, err
		}
	}

	m.mu.Lock()
	m.sessions[sessionID] = append(m.sessions[sessionID],
		domain.Message{Sender: domain.SenderUser, Text: text},
		domain.Message{Sender: domain.SenderBot, Text: reply},
	)
	m.mu.Unlock()
	return domain.Message{Sender: domain.SenderBot, Text: reply}, nil
}

func (m *Mock) ClearHistory(ctx context.Context, sessionID string) error {
	if err := m.begin(OpClearSession); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

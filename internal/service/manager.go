package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PersistenceFactory returns the Persistence for one chat owner.
type PersistenceFactory func(owner string) Persistence

// Manager keeps one Chat per owner in memory and drops chats that have been
// idle for too long. Their session lists stay in persistence and are loaded
// again on next use.
type Manager struct {
	backend     Backend
	persistence PersistenceFactory
	maxSessions int
	idleTTL     time.Duration

	mu    sync.Mutex
	chats map[string]*Chat
}

func NewManager(backend Backend, persistence PersistenceFactory, maxSessions int, idleTTL time.Duration) *Manager {
	return &Manager{
		backend:     backend,
		persistence: persistence,
		maxSessions: maxSessions,
		idleTTL:     idleTTL,
		chats:       make(map[string]*Chat),
	}
}

// Get returns the owner's chat, creating and initializing it on first use.
// An initialization error is returned together with the chat; the chat
// stays usable and the next Get retries initialization.
func (m *Manager) Get(ctx context.Context, owner string) (*Chat, error) {
	m.mu.Lock()
	chat, ok := m.chats[owner]
	if !ok {
		chat = NewChat(m.backend, m.persistence(owner), m.maxSessions)
		m.chats[owner] = chat
	}
	m.mu.Unlock()

	if err := chat.Initialize(ctx); err != nil {
		return chat, err
	}
	return chat, nil
}

// Len returns the number of chats held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chats)
}

// Cleanup drops chats idle since before now-idleTTL that have no reply
// pending. It returns the number of chats dropped.
func (m *Manager) Cleanup(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for owner, chat := range m.chats {
		if chat.Typing() || now.Sub(chat.LastUsed()) < m.idleTTL {
			continue
		}
		delete(m.chats, owner)
		removed++
	}
	return removed
}

// RunEviction calls Cleanup every interval until ctx is done.
func (m *Manager) RunEviction(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := m.Cleanup(now); n > 0 {
				slog.Debug("evicted idle chats", "count", n, "remaining", m.Len())
			}
		}
	}
}

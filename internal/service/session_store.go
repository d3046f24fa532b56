package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

// Backend is the remote chat service.
type Backend interface {
	CreateSession(ctx context.Context) (string, error)
	FetchHistory(ctx context.Context, sessionID string) ([]domain.Message, error)
	SendMessage(ctx context.Context, sessionID, text string) (domain.Message, error)
	ClearHistory(ctx context.Context, sessionID string) error
}

// Persistence stores the session list between runs. Load returns nil when
// nothing usable is stored.
type Persistence interface {
	Load(ctx context.Context) *domain.SessionListState
	Save(ctx context.Context, state domain.SessionListState) error
}

// ActiveListener is called after the active session changes. activeID is
// empty when no session could be made active.
type ActiveListener func(ctx context.Context, activeID string)

// SessionStore owns the session list of one chat owner and writes every
// mutation through to Persistence.
type SessionStore struct {
	backend     Backend
	persist     Persistence
	maxSessions int

	// opMu serializes mutations, including their backend calls.
	opMu sync.Mutex

	mu        sync.RWMutex
	state     domain.SessionListState
	loaded    bool
	listeners []ActiveListener

	lastBootstrapFailure time.Time
	now                  func() time.Time
}

func NewSessionStore(backend Backend, persist Persistence, maxSessions int) *SessionStore {
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &SessionStore{
		backend:     backend,
		persist:     persist,
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// Subscribe registers fn to be called on every active session change.
// Listeners run while the store's mutation lock is held and must not call
// mutating store methods.
func (s *SessionStore) Subscribe(fn ActiveListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Initialize loads the persisted list on first use and bootstraps a fresh
// session when the list is empty. It is safe to call repeatedly.
func (s *SessionStore) Initialize(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	prev := s.ActiveID()

	if !s.isLoaded() {
		var state domain.SessionListState
		if loaded := s.persist.Load(ctx); loaded != nil {
			state = loaded.Clone()
		}
		changed := state.Normalize()

		s.mu.Lock()
		s.state = state
		s.loaded = true
		s.mu.Unlock()

		if changed && len(state.Sessions) > 0 {
			s.save(ctx)
		}
	}

	var err error
	if s.ActiveID() == "" {
		_, err = s.bootstrap(ctx)
	}
	s.notifyIfChanged(ctx, prev)
	return err
}

// CreateSession allocates a session on the backend, puts it at the front of
// the list and makes it active.
func (s *SessionStore) CreateSession(ctx context.Context) (domain.Session, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	prev := s.ActiveID()
	sess, err := s.create(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	s.notifyIfChanged(ctx, prev)
	return sess, nil
}

// ResumeSession makes id the active session. Resuming the active session is a no-op.
func (s *SessionStore) ResumeSession(ctx context.Context, id string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	prev := s.ActiveID()
	if id != "" && id == prev {
		return nil
	}

	s.mu.Lock()
	if s.state.IndexOf(id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("resume session %q: %w", id, domain.ErrUnknownSession)
	}
	s.state.ActiveID = id
	s.mu.Unlock()

	s.save(ctx)
	s.notifyIfChanged(ctx, prev)
	return nil
}

// DeleteSession clears the session's backend history and removes it from the
// list. When the active session is removed the next one becomes active, or a
// fresh session is bootstrapped if none remain.
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if !s.contains(id) {
		return fmt.Errorf("delete session %q: %w", id, domain.ErrUnknownSession)
	}

	prev := s.ActiveID()
	s.clearRemote(ctx, id)

	s.mu.Lock()
	s.remove(id)
	empty := len(s.state.Sessions) == 0
	s.mu.Unlock()
	s.save(ctx)

	var err error
	if empty {
		if _, err = s.bootstrap(ctx); err != nil {
			err = fmt.Errorf("delete session: %w", err)
		}
	}
	s.notifyIfChanged(ctx, prev)
	return err
}

// DeleteAll clears every session and bootstraps a fresh one.
func (s *SessionStore) DeleteAll(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	prev := s.ActiveID()
	for _, sess := range s.Sessions() {
		s.clearRemote(ctx, sess.ID)
	}

	s.mu.Lock()
	s.state = domain.SessionListState{}
	s.mu.Unlock()
	s.save(ctx)

	_, err := s.bootstrap(ctx)
	s.notifyIfChanged(ctx, prev)
	if err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return nil
}

// Reset replaces the active session with a freshly allocated one. The old
// session's history is cleared and it is dropped from the list.
func (s *SessionStore) Reset(ctx context.Context) (domain.Session, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	prev := s.ActiveID()
	if prev == "" {
		return domain.Session{}, fmt.Errorf("reset session: %w", domain.ErrNoActiveSession)
	}

	s.clearRemote(ctx, prev)

	s.mu.Lock()
	s.remove(prev)
	s.mu.Unlock()

	sess, err := s.create(ctx)
	if err != nil {
		// the old session is gone either way; keep the list consistent
		s.save(ctx)
		if s.ActiveID() == "" {
			s.markBootstrapFailure()
		}
		s.notifyIfChanged(ctx, prev)
		return domain.Session{}, fmt.Errorf("reset session: %w", err)
	}
	s.notifyIfChanged(ctx, prev)
	return sess, nil
}

// UpdatePreview sets the preview of session id from text if the session still
// carries the default preview. It reports whether the preview changed.
func (s *SessionStore) UpdatePreview(ctx context.Context, id, text string) bool {
	preview := MakePreview(text)
	if preview == "" {
		return false
	}

	s.mu.Lock()
	i := s.state.IndexOf(id)
	if i < 0 || !s.state.Sessions[i].HasDefaultPreview() {
		s.mu.Unlock()
		return false
	}
	s.state.Sessions[i].Preview = preview
	s.state.Sessions[i].Titled = true
	s.mu.Unlock()

	s.save(ctx)
	return true
}

func (s *SessionStore) Sessions() []domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Session, len(s.state.Sessions))
	copy(out, s.state.Sessions)
	return out
}

func (s *SessionStore) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ActiveID
}

func (s *SessionStore) Active() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Active()
}

// State returns a snapshot of the session list.
func (s *SessionStore) State() domain.SessionListState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// MakePreview collapses whitespace in text and cuts it to MaxPreviewLen runes.
func MakePreview(text string) string {
	preview := strings.Join(strings.Fields(text), " ")
	runes := []rune(preview)
	if len(runes) > config.MaxPreviewLen {
		preview = string(runes[:config.MaxPreviewLen])
	}
	return preview
}

// create must be called with opMu held.
func (s *SessionStore) create(ctx context.Context) (domain.Session, error) {
	id, err := s.backend.CreateSession(ctx)
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}

	sess := domain.Session{ID: id, Preview: domain.DefaultPreview}

	s.mu.Lock()
	s.remove(id)
	s.state.Sessions = append([]domain.Session{sess}, s.state.Sessions...)
	s.state.ActiveID = id
	var evicted []domain.Session
	if over := len(s.state.Sessions) - s.maxSessions; over > 0 {
		evicted = append(evicted, s.state.Sessions[s.maxSessions:]...)
		s.state.Sessions = s.state.Sessions[:s.maxSessions]
	}
	s.mu.Unlock()

	s.save(ctx)
	for _, old := range evicted {
		slog.Info("evicting oldest session", "session_id", old.ID)
		s.clearRemote(ctx, old.ID)
	}
	return sess, nil
}

// bootstrap creates the first session of an empty list. After a failure
// further attempts are refused until BootstrapRetryInterval has passed.
func (s *SessionStore) bootstrap(ctx context.Context) (domain.Session, error) {
	s.mu.RLock()
	last := s.lastBootstrapFailure
	s.mu.RUnlock()

	if !last.IsZero() && s.now().Sub(last) < config.BootstrapRetryInterval {
		return domain.Session{}, domain.ErrBootstrapThrottled
	}

	sess, err := s.create(ctx)
	if err != nil {
		s.markBootstrapFailure()
		slog.Error("bootstrap session", "error", err)
		return domain.Session{}, err
	}

	s.mu.Lock()
	s.lastBootstrapFailure = time.Time{}
	s.mu.Unlock()
	return sess, nil
}

func (s *SessionStore) markBootstrapFailure() {
	s.mu.Lock()
	s.lastBootstrapFailure = s.now()
	s.mu.Unlock()
}

// remove drops id from the list and repairs the active pointer. Callers hold mu.
func (s *SessionStore) remove(id string) {
	i := s.state.IndexOf(id)
	if i < 0 {
		return
	}
	s.state.Sessions = append(s.state.Sessions[:i:i], s.state.Sessions[i+1:]...)
	if s.state.ActiveID != id {
		return
	}
	if len(s.state.Sessions) > 0 {
		s.state.ActiveID = s.state.Sessions[0].ID
	} else {
		s.state.ActiveID = ""
	}
}

func (s *SessionStore) clearRemote(ctx context.Context, id string) {
	if err := s.backend.ClearHistory(ctx, id); err != nil {
		slog.Warn("clear session history", "session_id", id, "error", err)
	}
}

func (s *SessionStore) save(ctx context.Context) {
	if err := s.persist.Save(ctx, s.State()); err != nil {
		slog.Warn("save session state", "error", err)
	}
}

func (s *SessionStore) notifyIfChanged(ctx context.Context, prev string) {
	s.mu.RLock()
	active := s.state.ActiveID
	listeners := append([]ActiveListener(nil), s.listeners...)
	s.mu.RUnlock()

	if active == prev {
		return
	}
	for _, fn := range listeners {
		fn(ctx, active)
	}
}

func (s *SessionStore) isLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *SessionStore) contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IndexOf(id) >= 0
}

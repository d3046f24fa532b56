package domain

// DefaultPreview is the preview of a session that has not received a user message yet.
const DefaultPreview = "New Chat"

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

type Session struct {
	ID      string `json:"id"`
	Preview string `json:"preview"`
	// Titled is set once a user message has named the session, even when
	// that message equals DefaultPreview.
	Titled bool `json:"titled,omitempty"`
}

// HasDefaultPreview reports whether the preview was never replaced by a user message.
func (s Session) HasDefaultPreview() bool {
	return !s.Titled && (s.Preview == "" || s.Preview == DefaultPreview)
}

// SessionListState is the ordered catalogue of sessions, most recent first.
// ActiveID is empty when no session is active.
type SessionListState struct {
	Sessions []Session `json:"sessions"`
	ActiveID string    `json:"activeId,omitempty"`
}

func (s *SessionListState) IndexOf(id string) int {
	for i, sess := range s.Sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

func (s *SessionListState) Active() (Session, bool) {
	if s.ActiveID == "" {
		return Session{}, false
	}
	if i := s.IndexOf(s.ActiveID); i >= 0 {
		return s.Sessions[i], true
	}
	return Session{}, false
}

// Clone returns a copy that shares no memory with s.
func (s SessionListState) Clone() SessionListState {
	sessions := make([]Session, len(s.Sessions))
	copy(sessions, s.Sessions)
	return SessionListState{Sessions: sessions, ActiveID: s.ActiveID}
}

// Normalize drops empty and duplicate ids and repairs a dangling ActiveID.
// It reports whether anything changed.
func (s *SessionListState) Normalize() bool {
	changed := false
	seen := make(map[string]bool, len(s.Sessions))
	kept := s.Sessions[:0]
	for _, sess := range s.Sessions {
		if sess.ID == "" || seen[sess.ID] {
			changed = true
			continue
		}
		seen[sess.ID] = true
		if sess.Preview == "" {
			sess.Preview = DefaultPreview
			changed = true
		}
		kept = append(kept, sess)
	}
	s.Sessions = kept

	if len(s.Sessions) == 0 {
		if s.ActiveID != "" {
			s.ActiveID = ""
			changed = true
		}
		return changed
	}
	if !seen[s.ActiveID] {
		s.ActiveID = s.Sessions[0].ID
		changed = true
	}
	return changed
}

// ConversationState is the message log of the active session.
type ConversationState struct {
	SessionID string
	Messages  []Message
	Typing    bool
}

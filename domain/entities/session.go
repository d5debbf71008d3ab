package entities

import (
	"errors"
	"sync"
	"time"
)

// ErrSessionEnded is returned when a turn is appended to an ended session.
var ErrSessionEnded = errors.New("session has ended")

// Transport identifies the channel a session was opened on
type Transport string

const (
	TransportBrowser Transport = "browser"
	TransportPhone   Transport = "phone"
)

// State represents the lifecycle state of a session
type State string

const (
	StateActive State = "active"
	StateEnded  State = "ended"
)

// MessageRole represents the role of a message sender
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// SessionMessage is one (role, text) entry of the conversation history
type SessionMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Turn is one user utterance and the assistant reply to it.
type Turn struct {
	Transcript  string    `json:"transcript"`
	Emotion     Emotion   `json:"emotion"`
	ReplyText   string    `json:"reply_text"`
	AudioFormat string    `json:"audio_format,omitempty"`
	AudioSize   int       `json:"audio_size"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasAudio reports whether the reply was synthesized.
func (t Turn) HasAudio() bool {
	return t.AudioSize > 0
}

// Session represents one live conversation on a browser socket or a phone call
type Session struct {
	ID        string
	Transport Transport
	CreatedAt time.Time

	mu         sync.RWMutex
	state      State
	callStatus string
	endedAt    *time.Time
	turns      []Turn

	// messages is the append-only conversation log. pending is set while
	// the last entry is a user utterance that has no reply yet.
	messages []SessionMessage
	pending  bool
}

// NewSession creates an active session with an empty history
func NewSession(id string, transport Transport) *Session {
	return &Session{
		ID:        id,
		Transport: transport,
		CreatedAt: time.Now(),
		state:     StateActive,
		turns:     make([]Turn, 0),
	}
}

// Validate validates the session data
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	if s.Transport != TransportBrowser && s.Transport != TransportPhone {
		return errors.New("invalid session transport")
	}
	return nil
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) IsActive() bool {
	return s.State() == StateActive
}

// End marks the session as ended. Calling it twice is a no-op.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateEnded {
		return
	}
	now := time.Now()
	s.state = StateEnded
	s.endedAt = &now
}

// EndedAt returns when the session ended, or nil while it is active.
func (s *Session) EndedAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endedAt
}

// SetCallStatus records the latest telephony status for phone sessions.
func (s *Session) SetCallStatus(status string) {
	s.mu.Lock()
	s.callStatus = status
	s.mu.Unlock()
}

func (s *Session) CallStatus() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.callStatus
}

// RecordUtterance appends the user's transcript to the conversation log
// before a reply exists. It stays in the history even if no reply follows.
func (s *Session) RecordUtterance(transcript string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return ErrSessionEnded
	}
	s.messages = append(s.messages, SessionMessage{Role: MessageRoleUser, Content: transcript})
	s.pending = true
	return nil
}

// AppendTurn adds a completed turn. Turns are never edited or removed.
// The reply answers the utterance recorded by RecordUtterance, if one is
// pending; otherwise the turn's transcript is logged as well.
func (s *Session) AppendTurn(turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return ErrSessionEnded
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	s.turns = append(s.turns, turn)

	if !s.pending {
		s.messages = append(s.messages, SessionMessage{Role: MessageRoleUser, Content: turn.Transcript})
	}
	s.messages = append(s.messages, SessionMessage{Role: MessageRoleAssistant, Content: turn.ReplyText})
	s.pending = false
	return nil
}

// Turns returns a copy of the turn list
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) TurnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// History returns the conversation log in utterance order for LLM context.
// A user message whose reply failed is followed directly by the next one.
func (s *Session) History() []SessionMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]SessionMessage, len(s.messages))
	copy(history, s.messages)
	return history
}

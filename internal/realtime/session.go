package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tasklane/tasklane-api/internal/domain"
)

// Session errors.
var (
	// ErrSessionClosed is returned when sending to a session that has closed.
	// It is benign: the session is already on its way out of the room.
	ErrSessionClosed = errors.New("session closed")

	// ErrSendBufferFull is returned when a session cannot keep up. The session
	// closes itself before returning it.
	ErrSendBufferFull = errors.New("session send buffer full")
)

// SessionState is a point in a session's lifecycle.
type SessionState int32

// Session lifecycle: connecting -> active -> closing -> closed.
const (
	StateConnecting SessionState = iota
	StateActive
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one authenticated connection to a task room.
type Session struct {
	id        uuid.UUID
	principal domain.Principal
	taskID    int64

	state atomic.Int32
	send  chan []byte
	done  chan struct{}

	closeOnce   sync.Once
	closeCode   int
	closeReason string

	mu           sync.Mutex
	lastActivity time.Time
	typing       bool
	typingGen    uint64
	typingTimer  *time.Timer
}

// NewSession creates a session in the connecting state with room for
// bufferSize queued frames.
func NewSession(principal domain.Principal, taskID int64, bufferSize int) *Session {
	if bufferSize < 1 {
		bufferSize = 1
	}
	s := &Session{
		id:           uuid.New(),
		principal:    principal,
		taskID:       taskID,
		send:         make(chan []byte, bufferSize),
		done:         make(chan struct{}),
		closeCode:    websocket.CloseNormalClosure,
		lastActivity: time.Now(),
	}
	s.state.Store(int32(StateConnecting))
	return s
}

func (s *Session) ID() uuid.UUID               { return s.id }
func (s *Session) Principal() domain.Principal { return s.principal }
func (s *Session) TaskID() int64               { return s.taskID }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Activate moves a connecting session to active. It reports false if the
// session has already started closing.
func (s *Session) Activate() bool {
	return s.state.CompareAndSwap(int32(StateConnecting), int32(StateActive))
}

// Touch records inbound activity.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// LastActivity returns the time of the last inbound frame or pong.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Send encodes msg and queues it without blocking.
func (s *Session) Send(msg Outbound) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.enqueue(data)
}

func (s *Session) enqueue(data []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.send <- data:
		return nil
	default:
		s.CloseWith(websocket.CloseTryAgainLater, "send buffer full")
		return ErrSendBufferFull
	}
}

// Outbox is drained by the connection writer.
func (s *Session) Outbox() <-chan []byte {
	return s.send
}

// Done is closed once the session starts closing.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close closes the session with a normal closure code.
func (s *Session) Close() {
	s.CloseWith(websocket.CloseNormalClosure, "")
}

// CloseWith closes the session, recording the close code the writer sends
// to the peer. Only the first call has any effect.
func (s *Session) CloseWith(code int, reason string) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosing))
		s.mu.Lock()
		s.closeCode = code
		s.closeReason = reason
		s.disarmTypingLocked()
		s.typing = false
		s.mu.Unlock()
		close(s.done)
		s.state.Store(int32(StateClosed))
	})
}

// CloseStatus returns the code and reason recorded by CloseWith.
func (s *Session) CloseStatus() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCode, s.closeReason
}

// SetTyping records the member's typing flag and reports whether it changed.
// A true flag arms an expiry timer; if no newer signal arrives within expiry,
// the flag is cleared and onExpire runs on the timer goroutine.
func (s *Session) SetTyping(isTyping bool, expiry time.Duration, onExpire func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() >= StateClosing {
		return false
	}

	changed := s.typing != isTyping
	s.typing = isTyping
	s.disarmTypingLocked()
	if !isTyping {
		return changed
	}

	gen := s.typingGen
	s.typingTimer = time.AfterFunc(expiry, func() {
		s.mu.Lock()
		if s.typingGen != gen || !s.typing {
			s.mu.Unlock()
			return
		}
		s.typing = false
		s.typingTimer = nil
		s.mu.Unlock()
		if onExpire != nil {
			onExpire()
		}
	})
	return changed
}

// ClearTyping disarms typing and reports whether the member was typing.
func (s *Session) ClearTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.typing
	s.typing = false
	s.disarmTypingLocked()
	return was
}

// IsTyping reports the current typing flag.
func (s *Session) IsTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

// disarmTypingLocked stops the pending expiry and invalidates any timer
// callback already in flight. Callers hold s.mu.
func (s *Session) disarmTypingLocked() {
	s.typingGen++
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
}

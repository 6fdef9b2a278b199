package hub

import "sync"

const sendBufferSize = 64

// Session is one live connection's server-side state: an identity and
// a buffered outbound channel drained by the connection's write loop.
type Session struct {
	UserID string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// NewSession builds a session for an authenticated user.
func NewSession(userID string) *Session {
	return &Session{
		UserID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Outbound exposes the channel the write loop drains.
func (s *Session) Outbound() <-chan []byte {
	return s.send
}

// Close shuts the outbound channel, ending the write loop. Safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// push queues a message without blocking; a closed session or full
// buffer drops it, matching the no-replay contract for disconnected
// recipients.
func (s *Session) push(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

package binder

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"keybridge/internal/domain"
)

// Session is the state of one provider binding. Its transport handle is owned
// by the Binder; other packages only read it through Conn.
type Session struct {
	cfg domain.SessionConfig

	mu      sync.Mutex
	state   domain.ConnectionState
	conn    domain.Conn
	lastErr *domain.ErrorInfo

	// ready is closed once the handshake settles on Bound or Failed.
	ready chan struct{}
	// handshakeDone is closed when the handshake goroutine has returned.
	handshakeDone chan struct{}
	cancel        context.CancelFunc
}

func newSession(cfg domain.SessionConfig) *Session {
	return &Session{
		cfg:   cfg,
		state: domain.StateUnbound,
		ready: make(chan struct{}),
	}
}

// Config returns the configuration the session was bound with.
func (s *Session) Config() domain.SessionConfig { return s.cfg }

// State returns the current connection state.
func (s *Session) State() domain.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the failure recorded when the session entered Failed.
func (s *Session) LastError() *domain.ErrorInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Ready is closed once the session reached Bound or Failed.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Conn returns the live binding, or a NotBound error unless the session is
// Bound.
func (s *Session) Conn() (domain.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateBound || s.conn == nil {
		return nil, domain.NewError(domain.NotBound, "session is "+s.state.String())
	}
	return s.conn, nil
}

// transition moves the session to next. Caller holds s.mu.
func (s *Session) transition(next domain.ConnectionState) error {
	if !s.state.CanTransition(next) {
		return errors.Wrapf(domain.ErrInvalidTransition, "%s -> %s", s.state, next)
	}
	s.state = next
	return nil
}

// settle ends the handshake. It reports false if the session had already left
// Connecting, in which case conn is not adopted.
func (s *Session) settle(conn domain.Conn, failure *domain.ErrorInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := domain.StateBound
	if failure != nil {
		next = domain.StateFailed
	}
	if err := s.transition(next); err != nil {
		return false
	}
	s.conn = conn
	s.lastErr = failure
	close(s.ready)
	return true
}

package binder

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"keybridge/internal/domain"
	"keybridge/internal/logger"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	releaseTimeout          = 5 * time.Second
)

// Binder owns the connections to the external provider.
type Binder struct {
	connector        domain.Connector
	log              logger.Logger
	handshakeTimeout time.Duration
}

// Option configures a Binder.
type Option func(*Binder)

// WithHandshakeTimeout bounds how long a handshake may take before the
// session fails.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(b *Binder) {
		if d > 0 {
			b.handshakeTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(b *Binder) { b.log = log }
}

// New returns a Binder dialing through connector.
func New(connector domain.Connector, opts ...Option) *Binder {
	b := &Binder{
		connector:        connector,
		log:              logger.Nop(),
		handshakeTimeout: defaultHandshakeTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind starts the handshake on its own goroutine and returns at once with a
// Connecting session. The session settles on Bound or Failed; failures are
// recorded on the session and never returned or panicked.
func (b *Binder) Bind(cfg domain.SessionConfig) *Session {
	s := newSession(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), b.handshakeTimeout)

	s.mu.Lock()
	_ = s.transition(domain.StateConnecting)
	s.cancel = cancel
	s.handshakeDone = make(chan struct{})
	s.mu.Unlock()

	b.log.Debug("binding provider", "identity", cfg.Identity())
	go b.handshake(ctx, cancel, s)
	return s
}

func (b *Binder) handshake(ctx context.Context, cancel context.CancelFunc, s *Session) {
	defer close(s.handshakeDone)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			b.fail(s, domain.NewError(domain.ConnectionFailed, fmt.Sprintf("handshake panic: %v", r)))
		}
	}()

	conn, err := b.connector.Connect(ctx, s.cfg)
	if err != nil {
		b.fail(s, connectionFailure(err))
		return
	}
	if conn == nil {
		b.fail(s, domain.NewError(domain.ConnectionFailed, "provider returned no connection"))
		return
	}
	if !s.settle(conn, nil) {
		b.release(conn)
		return
	}
	b.log.Info("provider bound")
}

func (b *Binder) fail(s *Session, info *domain.ErrorInfo) {
	if s.settle(nil, info) {
		b.log.Warn("provider binding failed", "err", info)
	}
}

// Unbind releases the session's connection, cancelling and awaiting an
// in-flight handshake first. The session ends Unbound. Unbind is idempotent
// and safe on failed or never-bound sessions.
func (b *Binder) Unbind(s *Session) {
	if s == nil {
		return
	}

	s.mu.Lock()
	cancel, done := s.cancel, s.handshakeDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	wasBound := s.state == domain.StateBound
	if s.state != domain.StateUnbound {
		_ = s.transition(domain.StateUnbound)
	}
	s.mu.Unlock()

	if conn != nil {
		b.release(conn)
	}
	if wasBound {
		b.log.Info("provider unbound")
	}
}

func (b *Binder) release(conn domain.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := conn.Close(ctx); err != nil {
		b.log.Warn("provider release failed", "err", err)
	}
}

func connectionFailure(err error) *domain.ErrorInfo {
	var info *domain.ErrorInfo
	if errors.As(err, &info) && info.Kind == domain.ConnectionFailed {
		return info
	}
	return domain.WrapError(domain.ConnectionFailed, err, "")
}

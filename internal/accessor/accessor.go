package accessor

import (
	"context"
	"sync"

	"keybridge/internal/binder"
	"keybridge/internal/domain"
)

// Accessor hands a ready session to synchronous callers, binding lazily on
// first use.
type Accessor struct {
	binder *binder.Binder
	cfg    domain.SessionConfig

	mu      sync.Mutex
	session *binder.Session
}

// New returns an Accessor binding cfg through b.
func New(b *binder.Binder, cfg domain.SessionConfig) *Accessor {
	return &Accessor{binder: b, cfg: cfg}
}

// Start binds if no session exists yet, without waiting.
func (a *Accessor) Start() *binder.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		a.session = a.binder.Bind(a.cfg)
	}
	return a.session
}

// GetSession returns the session once it is Bound or Failed, binding first if
// needed. If ctx ends before that, it returns an error matching both
// domain.ErrInterrupted and ctx.Err(), and no session; binding carries on so
// a retry can pick it up.
func (a *Accessor) GetSession(ctx context.Context) (*binder.Session, error) {
	return a.Await(ctx, a.Start())
}

// Await blocks until s is Bound or Failed, or ctx ends. It never binds.
func (a *Accessor) Await(ctx context.Context, s *binder.Session) (*binder.Session, error) {
	select {
	case <-s.Ready():
		return s, nil
	default:
	}

	select {
	case <-s.Ready():
		return s, nil
	case <-ctx.Done():
		return nil, domain.WrapError(domain.Interrupted, ctx.Err(), "waiting for provider session")
	}
}

// Current returns the session without binding or waiting. It is nil until
// the first Start or GetSession.
func (a *Accessor) Current() *binder.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Reset unbinds and forgets the session so the next GetSession binds again.
func (a *Accessor) Reset() {
	a.mu.Lock()
	s := a.session
	a.session = nil
	a.mu.Unlock()

	a.binder.Unbind(s)
}

package delegation

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"keybridge/internal/accessor"
	"keybridge/internal/binder"
	"keybridge/internal/correlate"
	"keybridge/internal/domain"
	"keybridge/internal/dispatch"
	"keybridge/internal/logger"
)

const signalBuffer = 64

// Options configures a delegation Context.
type Options struct {
	Config    domain.SessionConfig
	Connector domain.Connector
	// Interactor receives follow-ups for requests that need interaction.
	// It may be nil when callers poll OutstandingRequest.FollowUp instead.
	Interactor       domain.Interactor
	Logger           logger.Logger
	HandshakeTimeout time.Duration
	// Eager starts binding in Open instead of on first GetSession.
	Eager bool
}

// Context owns exactly one provider session and the requests issued over it.
// Completions are applied one at a time, in arrival order, on the context's
// delivery goroutine.
type Context struct {
	log        logger.Logger
	binder     *binder.Binder
	accessor   *accessor.Accessor
	correlator *correlate.Correlator
	dispatcher *dispatch.Dispatcher
	interactor domain.Interactor

	// gate orders Close after any in-flight bind start or registration.
	gate   sync.RWMutex
	closed bool

	signals   chan domain.Signal
	closing   chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// Open builds a Context. It fails fast when opts.Config carries no identity.
func Open(opts Options) (*Context, error) {
	if opts.Config.IsZero() {
		return nil, domain.ErrNoIdentity
	}
	if opts.Connector == nil {
		return nil, errors.New("delegation: no provider connector")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("provider", opts.Config.ProviderID())

	table := correlate.NewTable()
	b := binder.New(opts.Connector, binder.WithLogger(log), binder.WithHandshakeTimeout(opts.HandshakeTimeout))
	c := &Context{
		log:        log,
		binder:     b,
		accessor:   accessor.New(b, opts.Config),
		correlator: correlate.New(table, log),
		interactor: opts.Interactor,
		signals:    make(chan domain.Signal, signalBuffer),
		closing:    make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	c.dispatcher = dispatch.New(table, func(sig domain.Signal) {
		if !c.enqueue(sig) {
			log.Debug("dropped completion after close", "id", sig.CorrelationID)
		}
	}, log)

	go c.deliverLoop()
	if opts.Eager {
		c.accessor.Start()
	}
	return c, nil
}

// GetSession blocks until the session is Bound or Failed, binding on first
// use. See accessor.Accessor.GetSession.
func (c *Context) GetSession(ctx context.Context) (*binder.Session, error) {
	c.gate.RLock()
	if c.closed {
		c.gate.RUnlock()
		return nil, domain.ErrClosed
	}
	s := c.accessor.Start()
	c.gate.RUnlock()
	return c.accessor.Await(ctx, s)
}

// Session returns the current session, if any, without binding or blocking.
func (c *Context) Session() *binder.Session { return c.accessor.Current() }

// Dispatch issues an operation over the current session. It does not wait
// for binding: without a Bound session it fails with NotBound.
func (c *Context) Dispatch(ctx context.Context, kind domain.RequestKind, input []byte) (*correlate.OutstandingRequest, error) {
	c.gate.RLock()
	defer c.gate.RUnlock()
	if c.closed {
		return nil, domain.ErrClosed
	}
	return c.dispatcher.Dispatch(ctx, c.accessor.Current(), kind, input)
}

// Encrypt dispatches an encrypt operation for the session identity.
func (c *Context) Encrypt(ctx context.Context, plaintext []byte) (*correlate.OutstandingRequest, error) {
	return c.Dispatch(ctx, domain.KindEncrypt, plaintext)
}

// Decrypt dispatches a decrypt operation.
func (c *Context) Decrypt(ctx context.Context, ciphertext []byte) (*correlate.OutstandingRequest, error) {
	return c.Dispatch(ctx, domain.KindDecrypt, ciphertext)
}

// TestConnectivity asks the provider which keys it knows for the identity.
func (c *Context) TestConnectivity(ctx context.Context) (*correlate.OutstandingRequest, error) {
	return c.Dispatch(ctx, domain.KindConnectivityTest, nil)
}

// Interact runs a follow-up against the provider and returns its answer,
// which the caller passes to OnExternalResult.
func (c *Context) Interact(ctx context.Context, f domain.FollowUp, resp domain.InteractionResponse) (*domain.Completion, error) {
	if c.isClosed() {
		return nil, domain.ErrClosed
	}
	return c.dispatcher.Interact(ctx, c.accessor.Current(), f, resp)
}

// OnExternalResult forwards the result of a launched interaction to the
// correlator under id. A nil completion is forwarded as an empty response.
func (c *Context) OnExternalResult(id domain.CorrelationID, kind domain.RequestKind, comp *domain.Completion) error {
	if !c.enqueue(domain.Signal{CorrelationID: id, Kind: kind, Completion: comp}) {
		return domain.ErrClosed
	}
	return nil
}

// Reconnect drops the current session so the next GetSession binds again.
func (c *Context) Reconnect() {
	c.accessor.Reset()
}

// Close unbinds the session and fails every unresolved request. It is safe to
// call more than once.
func (c *Context) Close() error {
	c.closeOnce.Do(func() {
		c.gate.Lock()
		c.closed = true
		c.gate.Unlock()

		close(c.closing)
		<-c.stopped
		c.accessor.Reset()
		if n := c.correlator.Abort(domain.NewError(domain.ConnectionFailed, "delegation context closed")); n > 0 {
			c.log.Warn("aborted outstanding requests", "count", n)
		}
	})
	return nil
}

func (c *Context) isClosed() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

func (c *Context) enqueue(sig domain.Signal) bool {
	select {
	case <-c.closing:
		return false
	default:
	}
	select {
	case c.signals <- sig:
		return true
	case <-c.closing:
		return false
	}
}

func (c *Context) deliverLoop() {
	defer close(c.stopped)
	for {
		select {
		case sig := <-c.signals:
			c.deliver(sig)
		case <-c.closing:
			for {
				select {
				case sig := <-c.signals:
					c.deliver(sig)
				default:
					return
				}
			}
		}
	}
}

func (c *Context) deliver(sig domain.Signal) {
	f, err := c.correlator.Resolve(sig)
	if err != nil {
		c.log.Warn("dropping completion", "id", sig.CorrelationID, "kind", sig.Kind, "err", err)
		return
	}
	if f != nil && c.interactor != nil {
		c.interactor.Launch(*f)
	}
}

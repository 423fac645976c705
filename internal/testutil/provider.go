package testutil

import (
	"context"
	"sync"

	"keybridge/internal/domain"
)

// Connector is a scripted domain.Connector.
//
// With no script every Connect succeeds at once and every operation succeeds,
// echoing its input; connectivity tests report no keys.
type Connector struct {
	// Err fails every Connect.
	Err error
	// Gate, when non-nil, holds Connect until it is closed or ctx ends.
	Gate chan struct{}
	// Reply scripts Conn.Do.
	Reply func(op domain.Operation) (*domain.Completion, error)
	// Answer scripts Conn.Interact.
	Answer func(id string, resp domain.InteractionResponse) (*domain.Completion, error)

	mu       sync.Mutex
	connects int
	conns    []*Conn
}

var _ domain.Connector = (*Connector)(nil)

// Connect implements domain.Connector.
func (c *Connector) Connect(ctx context.Context, cfg domain.SessionConfig) (domain.Conn, error) {
	c.mu.Lock()
	c.connects++
	c.mu.Unlock()

	if c.Gate != nil {
		select {
		case <-c.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.Err != nil {
		return nil, c.Err
	}

	conn := &Conn{parent: c, cfg: cfg}
	c.mu.Lock()
	c.conns = append(c.conns, conn)
	c.mu.Unlock()
	return conn, nil
}

// Connects returns how many handshakes were attempted.
func (c *Connector) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

// Conns returns the connections handed out so far.
func (c *Connector) Conns() []*Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Conn(nil), c.conns...)
}

// Conn is a connection made by Connector.
type Conn struct {
	parent *Connector
	cfg    domain.SessionConfig

	mu     sync.Mutex
	ops    []domain.Operation
	closed bool
}

var _ domain.Conn = (*Conn)(nil)

// Do implements domain.Conn.
func (c *Conn) Do(ctx context.Context, op domain.Operation) (*domain.Completion, error) {
	c.mu.Lock()
	c.ops = append(c.ops, op)
	c.mu.Unlock()

	if c.parent.Reply != nil {
		return c.parent.Reply(op)
	}
	comp := &domain.Completion{Outcome: domain.OutcomeSuccess, Kind: op.Kind}
	if op.Kind.CarriesInput() {
		comp.Payload = append([]byte{}, op.Input...)
	}
	return comp, nil
}

// Interact implements domain.Conn.
func (c *Conn) Interact(ctx context.Context, id string, resp domain.InteractionResponse) (*domain.Completion, error) {
	if c.parent.Answer != nil {
		return c.parent.Answer(id, resp)
	}
	if resp.Cancel {
		return &domain.Completion{Outcome: domain.OutcomeUserCancelled}, nil
	}
	return &domain.Completion{Outcome: domain.OutcomeSuccess, Payload: []byte{}}, nil
}

// Close implements domain.Conn.
func (c *Conn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Config returns the configuration the connection was bound with.
func (c *Conn) Config() domain.SessionConfig { return c.cfg }

// Ops returns the operations received so far.
func (c *Conn) Ops() []domain.Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Operation(nil), c.ops...)
}

// Closed reports whether the connection was released.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// FollowUps is a domain.Interactor collecting launched follow-ups.
type FollowUps chan domain.FollowUp

// Launch implements domain.Interactor.
func (f FollowUps) Launch(fu domain.FollowUp) { f <- fu }

package dispatch

import (
	"context"

	"github.com/pkg/errors"

	"keybridge/internal/binder"
	"keybridge/internal/correlate"
	"keybridge/internal/domain"
	"keybridge/internal/logger"
)

// Dispatcher issues operations against a bound session. Completions are not
// returned to the caller; they are handed to deliver, which feeds the
// Correlator.
type Dispatcher struct {
	table   *correlate.Table
	deliver func(domain.Signal)
	log     logger.Logger
}

// New returns a Dispatcher registering requests in table and handing provider
// replies to deliver.
func New(table *correlate.Table, deliver func(domain.Signal), log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{table: table, deliver: deliver, log: log}
}

// Dispatch sends an operation of kind over s and returns the Pending request
// tracking it. It fails with NotBound, registering nothing, unless s is Bound.
// Encrypt and Decrypt carry input and the session identity; connectivity
// tests carry no input. ctx bounds the send, which outlives this call.
func (d *Dispatcher) Dispatch(ctx context.Context, s *binder.Session, kind domain.RequestKind, input []byte) (*correlate.OutstandingRequest, error) {
	if s == nil {
		return nil, domain.NewError(domain.NotBound, "no session")
	}
	conn, err := s.Conn()
	if err != nil {
		return nil, err
	}

	req, err := d.table.Register(kind)
	if err != nil {
		return nil, err
	}

	op := domain.Operation{
		CorrelationID: req.CorrelationID(),
		Kind:          kind,
		Identity:      s.Config().Identity(),
	}
	if kind.CarriesInput() {
		op.Input = append([]byte{}, input...)
	}

	d.log.Debug("dispatching", "kind", kind, "id", op.CorrelationID)
	go d.send(ctx, conn, op)
	return req, nil
}

func (d *Dispatcher) send(ctx context.Context, conn domain.Conn, op domain.Operation) {
	comp, err := conn.Do(ctx, op)
	if err != nil {
		comp = failure(ctx, err)
	}
	d.deliver(domain.Signal{CorrelationID: op.CorrelationID, Kind: op.Kind, Completion: comp})
}

// Interact runs the provider interaction named by f over s and returns the
// provider's answer. The caller forwards it, unchanged, to the correlator
// under f.CorrelationID.
func (d *Dispatcher) Interact(ctx context.Context, s *binder.Session, f domain.FollowUp, resp domain.InteractionResponse) (*domain.Completion, error) {
	if s == nil {
		return nil, domain.NewError(domain.NotBound, "no session")
	}
	conn, err := s.Conn()
	if err != nil {
		return nil, err
	}
	if _, ok := d.table.Lookup(f.CorrelationID); !ok {
		return nil, errors.Wrap(domain.ErrUnknownRequest, f.CorrelationID.String())
	}
	comp, err := conn.Interact(ctx, f.Interaction.ID, resp)
	if err != nil {
		return nil, errors.WithMessagef(err, "interaction %s", f.Interaction.ID)
	}
	return comp, nil
}

// failure turns a transport error into an Error completion.
func failure(ctx context.Context, err error) *domain.Completion {
	var info *domain.ErrorInfo
	switch {
	case ctx.Err() != nil:
		info = domain.WrapError(domain.Interrupted, ctx.Err(), "")
	case errors.As(err, &info):
	default:
		info = domain.WrapError(domain.ConnectionFailed, err, "")
	}
	return &domain.Completion{Outcome: domain.OutcomeError, Err: info}
}

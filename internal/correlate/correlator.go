package correlate

import (
	"github.com/pkg/errors"

	"keybridge/internal/domain"
	"keybridge/internal/logger"
)

// Correlator classifies completion signals onto the requests in a Table.
// It never blocks.
type Correlator struct {
	table *Table
	log   logger.Logger
}

// New returns a Correlator over table.
func New(table *Table, log logger.Logger) *Correlator {
	if log == nil {
		log = logger.Nop()
	}
	return &Correlator{table: table, log: log}
}

// Resolve applies sig to the request registered under sig.CorrelationID.
//
//   - a nil completion, or an Encrypt or Decrypt Success without payload,
//     fails the request with EmptyResponse;
//   - UserCancelled cancels it;
//   - Success stores the payload (and key ids for connectivity tests). A
//     ConnectivityTest Success needs no payload: reaching the provider is
//     the result, so a nil Payload still succeeds with no key ids;
//   - NeedsInteraction leaves it Pending and returns the FollowUp the UI
//     collaborator must run;
//   - Error fails it with the carried ErrorInfo.
//
// Unknown ids and kind mismatches are returned as errors and change nothing.
func (c *Correlator) Resolve(sig domain.Signal) (*domain.FollowUp, error) {
	r, ok := c.table.Lookup(sig.CorrelationID)
	if !ok {
		return nil, errors.Wrap(domain.ErrUnknownRequest, sig.CorrelationID.String())
	}
	if sig.Kind != r.kind {
		return nil, errors.Wrapf(domain.ErrKindMismatch, "%s: got %s, want %s", sig.CorrelationID, sig.Kind, r.kind)
	}

	comp := sig.Completion
	if comp == nil {
		c.fail(r, domain.NewError(domain.EmptyResponse, ""))
		return nil, nil
	}
	if comp.Kind.Valid() && comp.Kind != r.kind {
		return nil, errors.Wrapf(domain.ErrKindMismatch, "%s: completion for %s, want %s", sig.CorrelationID, comp.Kind, r.kind)
	}

	switch comp.Outcome {
	case domain.OutcomeUserCancelled:
		c.table.remove(r.id)
		r.cancel()
		c.log.Info("request cancelled by user", "kind", r.kind, "id", r.id)

	case domain.OutcomeSuccess:
		if comp.Payload == nil && r.kind != domain.KindConnectivityTest {
			c.fail(r, domain.NewError(domain.EmptyResponse, ""))
			return nil, nil
		}
		var payload []byte
		if comp.Payload != nil {
			payload = append([]byte{}, comp.Payload...)
		}
		c.table.remove(r.id)
		r.succeed(payload, comp.KeyIDs)
		c.log.Debug("request succeeded", "kind", r.kind, "id", r.id)

	case domain.OutcomeNeedsInteraction:
		if comp.Interaction == nil || comp.Interaction.ID == "" {
			c.fail(r, domain.NewError(domain.EmptyResponse, "interaction requested without descriptor"))
			return nil, nil
		}
		f := domain.FollowUp{
			CorrelationID: r.id,
			Kind:          r.kind,
			RequestCode:   r.kind.Code(),
			Interaction:   *comp.Interaction,
		}
		r.await(f)
		c.log.Debug("request needs interaction", "kind", r.kind, "id", r.id)
		return &f, nil

	case domain.OutcomeError:
		info := comp.Err
		if info == nil {
			info = domain.NewError(domain.ProviderError, "")
		}
		c.fail(r, info)

	default:
		c.fail(r, domain.NewError(domain.ProviderError, "unrecognized outcome "+comp.Outcome.String()))
	}
	return nil, nil
}

// Abort fails every unresolved request with info. Used on teardown so no
// caller waits forever.
func (c *Correlator) Abort(info *domain.ErrorInfo) int {
	reqs := c.table.drain()
	for _, r := range reqs {
		r.fail(info)
	}
	return len(reqs)
}

func (c *Correlator) fail(r *OutstandingRequest, info *domain.ErrorInfo) {
	c.table.remove(r.id)
	r.fail(info)
	c.log.Warn("request failed", "kind", r.kind, "id", r.id, "err", info)
}

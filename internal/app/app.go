package app

import (
	"context"

	"keybridge/internal/correlate"
	"keybridge/internal/domain"
)

// Run waits for the provider session, dispatches one operation and waits
// until it is resolved. Interactions are handled by the Interactor given in
// Config; without one a request needing interaction blocks until ctx ends.
func (w *Wire) Run(ctx context.Context, kind domain.RequestKind, input []byte) (*correlate.OutstandingRequest, error) {
	s, err := w.Delegation.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if info := s.LastError(); s.State() == domain.StateFailed && info != nil {
		return nil, info
	}

	req, err := w.Delegation.Dispatch(ctx, kind, input)
	if err != nil {
		return nil, err
	}
	if _, err := req.Wait(ctx); err != nil {
		return req, err
	}
	return req, nil
}

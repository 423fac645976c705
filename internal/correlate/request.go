package correlate

import (
	"context"
	"sync"

	"keybridge/internal/domain"
)

// OutstandingRequest tracks one dispatched operation until it reaches a
// terminal status. Only the Correlator mutates it.
type OutstandingRequest struct {
	kind domain.RequestKind
	id   domain.CorrelationID

	mu       sync.Mutex
	status   domain.Status
	payload  []byte
	keyIDs   []int64
	followUp *domain.FollowUp
	err      *domain.ErrorInfo
	done     chan struct{}
}

func newRequest(id domain.CorrelationID, kind domain.RequestKind) *OutstandingRequest {
	return &OutstandingRequest{
		kind:   kind,
		id:     id,
		status: domain.StatusPending,
		done:   make(chan struct{}),
	}
}

// Kind returns the operation kind.
func (r *OutstandingRequest) Kind() domain.RequestKind { return r.kind }

// CorrelationID returns the id completions are matched against.
func (r *OutstandingRequest) CorrelationID() domain.CorrelationID { return r.id }

// Status returns the current status.
func (r *OutstandingRequest) Status() domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Payload returns a copy of the result bytes of a succeeded request.
func (r *OutstandingRequest) Payload() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.payload == nil {
		return nil
	}
	return append([]byte{}, r.payload...)
}

// KeyIDs returns the key ids reported by a connectivity test, in provider
// order. It is empty, never nil, once a connectivity test has succeeded.
func (r *OutstandingRequest) KeyIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keyIDs == nil {
		return nil
	}
	return append([]int64{}, r.keyIDs...)
}

// FollowUp returns the latest interaction the provider asked for, if any.
func (r *OutstandingRequest) FollowUp() *domain.FollowUp {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.followUp == nil {
		return nil
	}
	f := *r.followUp
	return &f
}

// Err returns the failure of a Failed request.
func (r *OutstandingRequest) Err() *domain.ErrorInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Done is closed when the request reaches a terminal status.
func (r *OutstandingRequest) Done() <-chan struct{} { return r.done }

// Wait blocks until the request is terminal or ctx ends. It returns the
// terminal status and, for Failed requests, the failure.
func (r *OutstandingRequest) Wait(ctx context.Context) (domain.Status, error) {
	select {
	case <-r.done:
	case <-ctx.Done():
		return r.Status(), domain.WrapError(domain.Interrupted, ctx.Err(), "wait for "+r.kind.String())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.status, r.err
	}
	return r.status, nil
}

func (r *OutstandingRequest) succeed(payload []byte, keyIDs []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return
	}
	r.status = domain.StatusSucceeded
	r.payload = payload
	if r.kind == domain.KindConnectivityTest {
		r.keyIDs = append([]int64{}, keyIDs...)
	}
	r.followUp = nil
	close(r.done)
}

func (r *OutstandingRequest) cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return
	}
	r.status = domain.StatusCancelled
	r.followUp = nil
	close(r.done)
}

func (r *OutstandingRequest) fail(info *domain.ErrorInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return
	}
	r.status = domain.StatusFailed
	r.err = info
	r.followUp = nil
	close(r.done)
}

func (r *OutstandingRequest) await(f domain.FollowUp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followUp = &f
}

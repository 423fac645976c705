package correlate

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"keybridge/internal/domain"
)

// Table holds the unresolved requests of one delegation context.
type Table struct {
	mu      sync.Mutex
	pending map[domain.CorrelationID]*OutstandingRequest
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{pending: make(map[domain.CorrelationID]*OutstandingRequest)}
}

// Register creates a Pending request of kind under a fresh correlation id.
func (t *Table) Register(kind domain.RequestKind) (*OutstandingRequest, error) {
	return t.RegisterID(domain.CorrelationID(uuid.NewString()), kind)
}

// RegisterID creates a Pending request under id. It fails if a request with
// the same id is still unresolved.
func (t *Table) RegisterID(id domain.CorrelationID, kind domain.RequestKind) (*OutstandingRequest, error) {
	if !kind.Valid() {
		return nil, errors.Errorf("invalid request kind %d", int(kind))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[id]; ok {
		return nil, errors.Wrap(domain.ErrDuplicateRequest, id.String())
	}
	r := newRequest(id, kind)
	t.pending[id] = r
	return r, nil
}

// Lookup returns the unresolved request registered under id.
func (t *Table) Lookup(id domain.CorrelationID) (*OutstandingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.pending[id]
	return r, ok
}

// Len returns the number of unresolved requests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Table) remove(id domain.CorrelationID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, id)
}

func (t *Table) drain() []*OutstandingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*OutstandingRequest, 0, len(t.pending))
	for id, r := range t.pending {
		out = append(out, r)
		delete(t.pending, id)
	}
	return out
}

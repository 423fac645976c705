package domain

// ConnectionState is the lifecycle state of a session's provider binding.
type ConnectionState int

const (
	StateUnbound ConnectionState = iota
	StateConnecting
	StateBound
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateConnecting:
		return "connecting"
	case StateBound:
		return "bound"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Terminal reports whether s ends a connection attempt.
func (s ConnectionState) Terminal() bool {
	return s == StateBound || s == StateFailed
}

// CanTransition reports whether a session may move from s to next.
//
// Unbound -> Connecting -> {Bound, Failed}; Bound and Failed return to
// Unbound on teardown.
func (s ConnectionState) CanTransition(next ConnectionState) bool {
	switch s {
	case StateUnbound:
		return next == StateConnecting
	case StateConnecting:
		return next == StateBound || next == StateFailed
	case StateBound, StateFailed:
		return next == StateUnbound
	}
	return false
}

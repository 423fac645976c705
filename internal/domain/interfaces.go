package domain

import "context"

// Connector establishes bindings to an external provider.
type Connector interface {
	// Connect performs the binding handshake. It may block for as long as the
	// provider takes to answer and must honour ctx.
	Connect(ctx context.Context, cfg SessionConfig) (Conn, error)
}

// Conn is a live binding to a provider.
type Conn interface {
	// Do sends op and returns the provider's first completion for it.
	Do(ctx context.Context, op Operation) (*Completion, error)
	// Interact answers a pending provider interaction.
	Interact(ctx context.Context, interactionID string, resp InteractionResponse) (*Completion, error)
	// Close releases the binding.
	Close(ctx context.Context) error
}

// Interactor is the UI collaborator that runs follow-up interactions.
// Launch must not block the caller for the duration of the interaction.
type Interactor interface {
	Launch(f FollowUp)
}

// InteractorFunc adapts a function to Interactor.
type InteractorFunc func(FollowUp)

func (fn InteractorFunc) Launch(f FollowUp) { fn(f) }

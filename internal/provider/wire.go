package provider

import (
	"github.com/pkg/errors"

	"keybridge/internal/domain"
)

// APIVersion is the wire contract version spoken by client and provider.
const APIVersion = 1

// BindRequest opens a provider session.
type BindRequest struct {
	ProviderID string `json:"provider_id"`
	Identity   string `json:"identity"`
	APIVersion int    `json:"api_version"`
}

// BindResponse acknowledges a binding.
type BindResponse struct {
	Session    string `json:"session"`
	ProviderID string `json:"provider_id"`
	APIVersion int    `json:"api_version"`
}

// OpRequest carries one operation.
type OpRequest struct {
	Session       string `json:"session"`
	CorrelationID string `json:"correlation_id"`
	Kind          string `json:"kind"`
	Identity      string `json:"identity"`
	Input         []byte `json:"input,omitempty"`
}

// InteractionRequest answers a pending interaction.
type InteractionRequest struct {
	Session    string `json:"session"`
	Passphrase string `json:"passphrase,omitempty"`
	Cancel     bool   `json:"cancel,omitempty"`
}

// InteractionMessage describes an interaction the provider needs.
type InteractionMessage struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt,omitempty"`
}

// ErrorMessage is a failure reported inside a completion.
type ErrorMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// CompletionMessage is the provider's answer to an operation or interaction.
// Payload is null when absent and "" when empty.
type CompletionMessage struct {
	Outcome     string              `json:"outcome"`
	Kind        string              `json:"kind"`
	Payload     []byte              `json:"payload"`
	KeyIDs      []int64             `json:"key_ids,omitempty"`
	Interaction *InteractionMessage `json:"interaction,omitempty"`
	Error       *ErrorMessage       `json:"error,omitempty"`
}

// ErrorResponse is the body of non-2xx responses.
type ErrorResponse struct {
	Message string `json:"message"`
}

// ToCompletion converts m to its domain form.
func (m *CompletionMessage) ToCompletion() (*domain.Completion, error) {
	outcome, err := domain.ParseOutcome(m.Outcome)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	c := &domain.Completion{
		Outcome: outcome,
		Payload: m.Payload,
		KeyIDs:  m.KeyIDs,
	}
	if m.Kind != "" {
		if c.Kind, err = domain.ParseKind(m.Kind); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	if m.Interaction != nil {
		c.Interaction = &domain.Interaction{ID: m.Interaction.ID, Prompt: m.Interaction.Prompt}
	}
	if m.Error != nil {
		c.Err = domain.NewError(domain.ParseErrorKind(m.Error.Kind), m.Error.Message)
	}
	return c, nil
}

// FromCompletion converts c to its wire form.
func FromCompletion(c *domain.Completion) CompletionMessage {
	m := CompletionMessage{
		Outcome: c.Outcome.String(),
		Payload: c.Payload,
		KeyIDs:  c.KeyIDs,
	}
	if c.Kind.Valid() {
		m.Kind = c.Kind.String()
	}
	if c.Interaction != nil {
		m.Interaction = &InteractionMessage{ID: c.Interaction.ID, Prompt: c.Interaction.Prompt}
	}
	if c.Err != nil {
		m.Error = &ErrorMessage{Kind: c.Err.Kind.String(), Message: c.Err.Error()}
	}
	return m
}

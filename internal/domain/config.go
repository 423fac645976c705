package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// DefaultProviderID is used when no provider has been configured.
const DefaultProviderID = "org.sufficientlysecure.keychain"

// ErrNoIdentity is returned when a session is configured without an identity.
var ErrNoIdentity = errors.New("no crypto identity configured")

// SessionConfig parameterizes a delegation session. It is immutable once built.
type SessionConfig struct {
	identity   string
	providerID string
}

// NewSessionConfig validates identity and providerID. An empty identity fails
// fast; an empty providerID falls back to DefaultProviderID.
func NewSessionConfig(identity, providerID string) (SessionConfig, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return SessionConfig{}, ErrNoIdentity
	}
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		providerID = DefaultProviderID
	}
	return SessionConfig{identity: identity, providerID: providerID}, nil
}

// Identity returns the signer/recipient id.
func (c SessionConfig) Identity() string { return c.identity }

// ProviderID returns the provider identifier the session binds to.
func (c SessionConfig) ProviderID() string { return c.providerID }

// IsZero reports whether c was never built through NewSessionConfig.
func (c SessionConfig) IsZero() bool { return c.identity == "" }

func (c SessionConfig) String() string { return c.identity + "@" + c.providerID }

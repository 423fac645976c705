package domain

import "fmt"

// RequestKind tags the operation a request performs.
type RequestKind int

const (
	KindEncrypt RequestKind = iota + 1
	KindDecrypt
	KindConnectivityTest
)

// Stable request codes handed to the UI collaborator so it can route the
// result of a launched interaction back to the right operation.
const (
	RequestCodeEncrypt          = 3
	RequestCodeDecrypt          = 4
	RequestCodeConnectivityTest = 5
)

// Kinds lists every request kind.
var Kinds = []RequestKind{KindEncrypt, KindDecrypt, KindConnectivityTest}

// Code returns the stable numeric request code of k, or 0 if k is invalid.
func (k RequestKind) Code() int {
	switch k {
	case KindEncrypt:
		return RequestCodeEncrypt
	case KindDecrypt:
		return RequestCodeDecrypt
	case KindConnectivityTest:
		return RequestCodeConnectivityTest
	}
	return 0
}

// KindFromCode maps a request code back to its kind.
func KindFromCode(code int) (RequestKind, bool) {
	for _, k := range Kinds {
		if k.Code() == code {
			return k, true
		}
	}
	return 0, false
}

// ParseKind maps the wire name of a kind back to its value.
func ParseKind(s string) (RequestKind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown request kind %q", s)
}

// Valid reports whether k is one of the defined kinds.
func (k RequestKind) Valid() bool { return k.Code() != 0 }

func (k RequestKind) String() string {
	switch k {
	case KindEncrypt:
		return "encrypt"
	case KindDecrypt:
		return "decrypt"
	case KindConnectivityTest:
		return "connectivity_test"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// CarriesInput reports whether requests of kind k send input bytes.
func (k RequestKind) CarriesInput() bool {
	return k == KindEncrypt || k == KindDecrypt
}

// Status is the resolution state of an outstanding request. A request waiting
// on a provider interaction stays Pending and carries a FollowUp.
type Status int

const (
	StatusPending Status = iota
	StatusSucceeded
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	}
	return "invalid"
}

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusCancelled || s == StatusFailed
}

// Outcome is what the provider reports for one step of an operation.
type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeNeedsInteraction
	OutcomeUserCancelled
	// OutcomeError carries a provider or transport failure in Completion.Err.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNeedsInteraction:
		return "needs_interaction"
	case OutcomeUserCancelled:
		return "user_cancelled"
	case OutcomeError:
		return "error"
	}
	return "invalid"
}

// ParseOutcome maps the wire name of an outcome back to its value.
func ParseOutcome(s string) (Outcome, error) {
	for _, o := range []Outcome{OutcomeSuccess, OutcomeNeedsInteraction, OutcomeUserCancelled, OutcomeError} {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// CorrelationID ties a completion back to the request that caused it.
type CorrelationID string

func (id CorrelationID) String() string { return string(id) }

// Interaction describes a provider-owned interactive step, such as a
// passphrase prompt, that must run before an operation can complete.
type Interaction struct {
	ID     string
	Prompt string
}

// InteractionResponse is what the UI collaborator collected for an Interaction.
type InteractionResponse struct {
	Passphrase []byte
	Cancel     bool
}

// Completion is an asynchronous result signal from the provider.
// A nil Payload means the provider sent no payload.
type Completion struct {
	Outcome     Outcome
	Kind        RequestKind
	Payload     []byte
	KeyIDs      []int64
	Interaction *Interaction
	Err         *ErrorInfo
}

// Operation is a request as sent to the provider.
type Operation struct {
	CorrelationID CorrelationID
	Kind          RequestKind
	Identity      string
	Input         []byte
}

// FollowUp is the launchable instruction returned when a request needs
// interaction. The UI collaborator runs it and feeds the result back under
// the same CorrelationID.
type FollowUp struct {
	CorrelationID CorrelationID
	Kind          RequestKind
	RequestCode   int
	Interaction   Interaction
}

// Signal is a completion addressed to an outstanding request.
type Signal struct {
	CorrelationID CorrelationID
	Kind          RequestKind
	Completion    *Completion
}

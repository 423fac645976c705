package domain

import (
	"github.com/pkg/errors"
)

// ErrorKind classifies delegation failures.
type ErrorKind int

const (
	UnknownError ErrorKind = iota
	// NotBound: dispatch attempted before binding completed.
	NotBound
	// ConnectionFailed: the provider could not be reached.
	ConnectionFailed
	// EmptyResponse: a completion arrived without its payload.
	EmptyResponse
	// UserCancelled is a normal terminal outcome, listed for classification only.
	UserCancelled
	// Interrupted: a blocking wait was abandoned.
	Interrupted
	// ProviderError: the provider rejected the operation.
	ProviderError
)

var (
	ErrNotBound         = errors.New("session not bound")
	ErrConnectionFailed = errors.New("provider connection failed")
	ErrEmptyResponse    = errors.New("empty provider response")
	ErrUserCancelled    = errors.New("cancelled by user")
	ErrInterrupted      = errors.New("interrupted")
	ErrProviderError    = errors.New("provider error")

	ErrUnknownRequest    = errors.New("unknown correlation id")
	ErrKindMismatch      = errors.New("completion kind does not match request")
	ErrDuplicateRequest  = errors.New("request already outstanding")
	ErrInvalidTransition = errors.New("invalid connection state transition")
	ErrClosed            = errors.New("delegation context closed")
)

func (k ErrorKind) String() string {
	switch k {
	case NotBound:
		return "not_bound"
	case ConnectionFailed:
		return "connection_failed"
	case EmptyResponse:
		return "empty_response"
	case UserCancelled:
		return "user_cancelled"
	case Interrupted:
		return "interrupted"
	case ProviderError:
		return "provider_error"
	}
	return "unknown"
}

// ParseErrorKind maps the wire name of an error kind back to its value.
// Unrecognized names map to UnknownError.
func ParseErrorKind(s string) ErrorKind {
	for k := NotBound; k <= ProviderError; k++ {
		if k.String() == s {
			return k
		}
	}
	return UnknownError
}

func (k ErrorKind) sentinel() error {
	switch k {
	case NotBound:
		return ErrNotBound
	case ConnectionFailed:
		return ErrConnectionFailed
	case EmptyResponse:
		return ErrEmptyResponse
	case UserCancelled:
		return ErrUserCancelled
	case Interrupted:
		return ErrInterrupted
	case ProviderError:
		return ErrProviderError
	}
	return nil
}

// ErrorInfo is the structured error value carried by sessions and requests.
type ErrorInfo struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// NewError returns an ErrorInfo of kind with msg.
func NewError(kind ErrorKind, msg string) *ErrorInfo {
	return &ErrorInfo{Kind: kind, Message: msg}
}

// WrapError returns an ErrorInfo of kind caused by cause.
func WrapError(kind ErrorKind, cause error, msg string) *ErrorInfo {
	return &ErrorInfo{Kind: kind, Message: msg, Cause: cause}
}

func (e *ErrorInfo) Error() string {
	msg := e.Message
	if msg == "" {
		if s := e.Kind.sentinel(); s != nil {
			msg = s.Error()
		} else {
			msg = e.Kind.String()
		}
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the cause, so errors.Is(err, context.Canceled) works for
// interrupted waits.
func (e *ErrorInfo) Unwrap() error { return e.Cause }

// Is matches the sentinel of e's kind.
func (e *ErrorInfo) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the ErrorKind carried by err, or UnknownError.
func KindOf(err error) ErrorKind {
	var info *ErrorInfo
	if errors.As(err, &info) {
		return info.Kind
	}
	return UnknownError
}

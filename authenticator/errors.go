package authenticator

import (
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies why a login attempt failed
type ErrorKind int

const (
	KindInvalidState ErrorKind = iota + 1
	KindAuthorizationDenied
	KindTokenExchangeFailed
	KindTokenExchangeTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidState:
		return "invalid_state"
	case KindAuthorizationDenied:
		return "authorization_denied"
	case KindTokenExchangeFailed:
		return "token_exchange_failed"
	case KindTokenExchangeTimeout:
		return "token_exchange_timeout"
	default:
		return "unknown"
	}
}

// FlowError is the structured failure of a login attempt. Every FlowError is
// terminal for its attempt; the caller may offer a fresh login, never a retry
// of the same code.
type FlowError struct {
	Kind      ErrorKind
	AttemptID string

	// Reason is a short human readable cause
	Reason string

	// Status and ProviderError are set for token exchange failures.
	// ProviderError never contains the client secret.
	Status        int
	ProviderError string

	Timeout time.Duration
	Err     error
}

// Predefined errors for use with errors.Is
var (
	ErrInvalidState         = &FlowError{Kind: KindInvalidState}
	ErrAuthorizationDenied  = &FlowError{Kind: KindAuthorizationDenied}
	ErrTokenExchangeFailed  = &FlowError{Kind: KindTokenExchangeFailed}
	ErrTokenExchangeTimeout = &FlowError{Kind: KindTokenExchangeTimeout}
)

// Error implements the error interface
func (e *FlowError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindInvalidState:
		b.WriteString("invalid state")
	case KindAuthorizationDenied:
		b.WriteString("authorization denied")
	case KindTokenExchangeFailed:
		b.WriteString("token exchange failed")
		if e.Status != 0 {
			fmt.Fprintf(&b, " (status %d)", e.Status)
		}
	case KindTokenExchangeTimeout:
		b.WriteString("token exchange timed out")
		if e.Timeout > 0 {
			fmt.Fprintf(&b, " after %s", e.Timeout)
		}
	default:
		b.WriteString("login failed")
	}

	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.ProviderError != "" {
		b.WriteString(": ")
		b.WriteString(e.ProviderError)
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any
func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is matches any FlowError of the same kind
func (e *FlowError) Is(target error) bool {
	t, ok := target.(*FlowError)
	return ok && t.Kind == e.Kind
}

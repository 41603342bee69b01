package payments

import (
	"errors"
	"fmt"
)

// Kind classifies a failed exchange.
type Kind int

const (
	KindUnknown Kind = iota
	// KindMalformedInput is a request rejected locally before sending.
	KindMalformedInput
	// KindAuthorization is a failure to obtain a credential.
	KindAuthorization
	// KindTransientNetwork covers transport errors and 5xx responses.
	KindTransientNetwork
	// KindServerRejected is a "try again" answer; the caller may resubmit.
	KindServerRejected
	// KindPermanent is any other failure, including incomplete responses.
	KindPermanent
)

func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed input"
	case KindAuthorization:
		return "authorization"
	case KindTransientNetwork:
		return "transient network"
	case KindServerRejected:
		return "server rejected"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

var (
	// ErrUnauthorized is wrapped when the server refused a refreshed token.
	ErrUnauthorized = errors.New("unauthorized after token refresh")
	// ErrIncompleteResponse is wrapped when a success payload misses a
	// required field.
	ErrIncompleteResponse = errors.New("incomplete response")
	ErrMissingToken       = errors.New("token provider returned empty token")
)

// Error is a classified protocol failure.
type Error struct {
	Op     string
	Kind   Kind
	Status int    // HTTP status, 0 when no response was received
	Code   string // error code from the response envelope
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Code != "" {
		msg += " code=" + e.Code
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Recoverable reports whether the same session may resubmit the request.
func (e *Error) Recoverable() bool { return e.Kind == KindServerRejected }

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// IsRecoverable is true for errors that re-open the challenge.
func IsRecoverable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Recoverable()
}

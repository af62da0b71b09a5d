package inference

import (
	"fmt"
)

// UnavailableError reports that no usable reply arrived: the capability
// could not be reached, answered with a failure status, or timed out.
type UnavailableError struct {
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("inference unavailable after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// MalformedReplyError reports a reply that arrived but could not be used.
// Column is empty when the reply as a whole was unreadable.
type MalformedReplyError struct {
	Column string
	Reason string
}

func (e *MalformedReplyError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("malformed inference reply: column %q: %s", e.Column, e.Reason)
	}
	return "malformed inference reply: " + e.Reason
}

// TransportError marks a capability failure that is worth one retry.
type TransportError struct {
	Status int // HTTP status, 0 for network errors
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("inference transport: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("inference transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

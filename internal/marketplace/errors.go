package marketplace

import (
	"errors"
	"fmt"
)

// TransportError reports that a marketplace call never produced a definitive
// answer: connection failures, timeouts, 5xx responses. The request may or
// may not have taken effect server-side.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("marketplace: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError reports a definitive refusal by the marketplace (HTTP 4xx).
// The request was understood and denied; retrying the same input will not
// succeed.
type RejectedError struct {
	Op     string
	ItemID string
	Code   string
	Reason string
}

func (e *RejectedError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("marketplace: %s %s rejected (%s): %s", e.Op, e.ItemID, e.Code, e.Reason)
	}
	return fmt.Sprintf("marketplace: %s rejected (%s): %s", e.Op, e.Code, e.Reason)
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRejected reports whether err is or wraps a RejectedError.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

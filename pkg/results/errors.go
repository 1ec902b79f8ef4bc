package results

import (
	"errors"
	"fmt"
)

// ErrProtocol is the sentinel wrapped by every ProtocolError.
var ErrProtocol = errors.New("result builder protocol violation")

// ProtocolError describes misuse of a Builder by its driver: popping or peeking
// an empty stack, attaching a leaf with no open parent, or attaching a second
// child to a negation. Builders panic with a *ProtocolError; these are driver
// bugs, not validation failures.
type ProtocolError struct {
	Op       string
	Property string
	Reason   string
}

// Error returns the error message.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("results: %s on property %q: %s", e.Op, e.Property, e.Reason)
}

// Unwrap returns ErrProtocol.
func (e *ProtocolError) Unwrap() error {
	return ErrProtocol
}

// AsProtocolError converts a recovered panic value into a *ProtocolError.
// It returns false for any other panic value.
func AsProtocolError(recovered any) (*ProtocolError, bool) {
	err, ok := recovered.(error)
	if !ok {
		return nil, false
	}
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidVariables is returned before any I/O when a call is malformed
var ErrInvalidVariables = errors.New("invalid ledger variables")

// TransportError means the request may or may not have reached the ledger.
// The outcome of a mutation is unknown.
type TransportError struct {
	Op  string
	Err error
	// Aborted is set when the caller's context ended before the ledger answered
	Aborted bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ledger transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CountsAgainstBreaker reports whether err says something about the ledger's
// health. Callers that hang up or run out of their own deadline do not.
func CountsAgainstBreaker(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr.Aborted {
		return false
	}
	return err != nil
}

// ProtocolError means the ledger answered but not with a usable payload
type ProtocolError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ledger protocol failure during %s (HTTP %d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ledger protocol failure during %s: %s", e.Op, e.Message)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// UserError is one business error reported by the ledger, kept verbatim
type UserError struct {
	Message string   `json:"message"`
	Field   []string `json:"field,omitempty"`
	Code    string   `json:"code,omitempty"`
}

// UserErrorsError carries the ledger's business rejections
type UserErrorsError struct {
	Op     string
	Errors []UserError
}

func (e *UserErrorsError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ue := range e.Errors {
		msgs = append(msgs, ue.Message)
	}
	return fmt.Sprintf("ledger rejected %s: %s", e.Op, strings.Join(msgs, "; "))
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidVariables, fmt.Sprintf(format, args...))
}

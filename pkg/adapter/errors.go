package adapter

import (
	"errors"
	"fmt"
	"net/http"
)

// ProtocolError is a domain failure translated for the wire. Status is the
// HTTP status used on the web path; Message is the plain text reply.
type ProtocolError struct {
	Status  int
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
}

// Unwrap exposes the domain error to errors.Is.
func (e *ProtocolError) Unwrap() error { return e.Err }

// NewProtocolError wraps err with a status and reply text.
func NewProtocolError(status int, message string, err error) *ProtocolError {
	return &ProtocolError{Status: status, Message: message, Err: err}
}

// StatusOf returns the status carried by err, or 500.
func StatusOf(err error) int {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Status
	}
	return http.StatusInternalServerError
}

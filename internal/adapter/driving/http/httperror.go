package httphandler

import (
	"errors"
	"net/http"

	"github.com/avalette/credgate/internal/domain/model"
)

// Error is the explicit request-failure result handlers return to the
// boundary, which renders it into a response. Handlers never write error
// responses themselves.
type Error struct {
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error with no underlying cause.
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// classify maps an arbitrary failure onto the response taxonomy. An *Error
// passes through unchanged. A connection-layer failure whose cause is a
// security failure becomes 407 (the caller should retry with override
// credentials); any other connection-layer failure becomes 404 without
// leaking internal detail. Everything else is a 500 carrying the failure's
// message.
func classify(err error) *Error {
	var herr *Error
	if errors.As(err, &herr) {
		return herr
	}

	var connErr *model.ConnectionError
	if errors.As(err, &connErr) {
		if errors.Is(connErr.Cause, model.ErrAccessDenied) {
			return &Error{Status: http.StatusProxyAuthRequired, Message: "target credentials required", Cause: err}
		}
		return &Error{Status: http.StatusNotFound, Message: "target not found", Cause: err}
	}

	return &Error{Status: http.StatusInternalServerError, Message: err.Error(), Cause: err}
}

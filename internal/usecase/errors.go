package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorValidation        ErrorCode = "VALIDATION_FAILED"
	ErrorNotFound          ErrorCode = "NOT_FOUND"
	ErrorBusy              ErrorCode = "CONVERSATION_BUSY"
	ErrorConflict          ErrorCode = "CONFLICT"
	ErrorInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrorUpstream          ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal          ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// validationError is a client-side format rejection. It never reaches the
// lead service and never touches the transcript.
func validationError(reason string) *Error {
	return newError(ErrorValidation, reason, nil)
}

// rejected reports an event the conversation cannot accept in its current state.
func rejected(reason string) *Error {
	return newError(ErrorInvalidTransition, reason, nil)
}

// busy reports an event that arrived while a remote call is in flight.
func busy(reason string) *Error {
	return newError(ErrorBusy, reason, nil)
}

// CodeOf returns the code and reason carried by err. Errors that are not
// *Error report ErrorInternal.
func CodeOf(err error) (ErrorCode, string) {
	var ucErr *Error
	if errors.As(err, &ucErr) && ucErr != nil {
		return ucErr.Code, ucErr.Reason
	}
	return ErrorInternal, ""
}

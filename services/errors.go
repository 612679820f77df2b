package services

import (
	"errors"

	"github.com/kataras/iris/v12"
)

// Error is the service-level failure type. Status is the HTTP-equivalent
// class, Code a stable machine-readable reason, Message human-readable
// detail. Retryable marks lock-wait timeouts that the caller may resubmit.
type Error struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// AsServiceError unwraps err into *Error if it is one.
func AsServiceError(err error) (*Error, bool) {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return nil, false
}

func validationError(code, message string) *Error {
	return &Error{Status: iris.StatusBadRequest, Code: code, Message: message}
}

func conflictError(code, message string) *Error {
	return &Error{Status: iris.StatusConflict, Code: code, Message: message}
}

func permissionError(code, message string) *Error {
	return &Error{Status: iris.StatusForbidden, Code: code, Message: message}
}

func notFoundError(code, message string) *Error {
	return &Error{Status: iris.StatusNotFound, Code: code, Message: message}
}

// insufficientFundsError is a 400 like other pre-lock bid rejections.
func insufficientFundsError(message string) *Error {
	return &Error{Status: iris.StatusBadRequest, Code: "insufficient_funds", Message: message}
}

// inconsistencyError signals state that the engine should never produce,
// e.g. two distinct leaders on one slot range. Surfaced as a server fault.
func inconsistencyError(message string) *Error {
	return &Error{Status: iris.StatusInternalServerError, Code: "inconsistent_state", Message: message}
}

func retryableError(message string) *Error {
	return &Error{Status: iris.StatusConflict, Code: "lock_timeout", Message: message, Retryable: true}
}

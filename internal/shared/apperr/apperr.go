// Package apperr is the error taxonomy shared by engines, ledger and settlement.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeBusy              Code = "BUSY"
	CodeInvalidAction     Code = "INVALID_ACTION"
	CodeInternal          Code = "INTERNAL"
)

// HTTPStatus maps a code to the status the HTTP layers answer with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case CodeBusy:
		return http.StatusTooManyRequests
	case CodeInvalidAction:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry the same request later.
func (c Code) Retryable() bool {
	return c == CodeBusy || c == CodeInternal
}

// Error is the domain error type.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by code, so errors.Is(err, apperr.ErrBusy) works.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict          = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds, Message: "insufficient funds"}
	ErrBusy              = &Error{Code: CodeBusy, Message: "operation in progress"}
	ErrInvalidAction     = &Error{Code: CodeInvalidAction, Message: "invalid action"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
)

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func Validation(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

func NotFound(format string, args ...any) *Error { return Newf(CodeNotFound, format, args...) }

func Conflict(format string, args ...any) *Error { return Newf(CodeConflict, format, args...) }

func InvalidAction(format string, args ...any) *Error {
	return Newf(CodeInvalidAction, format, args...)
}

// CodeOf returns the code of the first *Error in the chain, CodeInternal otherwise.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Internal wraps err as INTERNAL unless it already carries a domain code.
func Internal(message string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Wrap(CodeInternal, message, err)
}

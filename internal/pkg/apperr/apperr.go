// Package apperr defines the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable, externally visible error code.
type Code string

const (
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeAccountDisabled    Code = "ACCOUNT_DISABLED"
	CodeAccountLocked      Code = "ACCOUNT_LOCKED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeTokenInvalid       Code = "TOKEN_INVALID"
	CodeForbidden          Code = "FORBIDDEN"
	CodeDuplicateEntry     Code = "DUPLICATE_ENTRY"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInternal           Code = "INTERNAL"
)

// Error is a classified application error. Field is set for DuplicateEntry and
// ValidationError, which are safe to reveal to the caller.
type Error struct {
	Code    Code
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code, so errors.Is(err, apperr.ErrForbidden) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrUserNotFound       = &Error{Code: CodeUserNotFound}
	ErrAccountDisabled    = &Error{Code: CodeAccountDisabled}
	ErrAccountLocked      = &Error{Code: CodeAccountLocked}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials}
	ErrTokenExpired       = &Error{Code: CodeTokenExpired}
	ErrTokenInvalid       = &Error{Code: CodeTokenInvalid}
	ErrForbidden          = &Error{Code: CodeForbidden}
	ErrDuplicateEntry     = &Error{Code: CodeDuplicateEntry}
	ErrValidation         = &Error{Code: CodeValidation}
	ErrNotFound           = &Error{Code: CodeNotFound}
)

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

func Forbidden(action string) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf("not allowed to %s", action)}
}

func NotFound(what string) *Error {
	return &Error{Code: CodeNotFound, Message: what + " not found"}
}

func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Field: field, Message: message}
}

func Duplicate(field string) *Error {
	return &Error{Code: CodeDuplicateEntry, Field: field, Message: field + " already exists"}
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Tag     string    `json:"tag,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrConflict
	ErrNoBalance
	ErrDuplicate
)

// Conflict tags, reported in the order the slot checks run.
const (
	ConflictRoom         = "room"
	ConflictProfessional = "professional"
	ConflictClient       = "client"
)

// Balance tags
const (
	BalancePackage = "package"
	BalanceAdvance = "advance"
)

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// Conflict reports a double-booked slot. The tag names which axis
// collided: room, professional or client.
func Conflict(tag string) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: fmt.Sprintf("slot already taken: %s", tag),
		Tag:     tag,
	}
}

// NoBalance reports an exhausted credit balance. The tag names which
// balance is empty: package (client) or advance (professional).
func NoBalance(tag string) *AppError {
	return &AppError{
		Code:    ErrNoBalance,
		Message: fmt.Sprintf("no %s credit balance left", tag),
		Tag:     tag,
	}
}

// Duplicate reports a registry record that already exists. The tag names
// the field that matched.
func Duplicate(tag string) *AppError {
	return &AppError{
		Code:    ErrDuplicate,
		Message: fmt.Sprintf("record already exists, matched by %s", tag),
		Tag:     tag,
	}
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// TagOf returns the tag of an AppError, or "" for any other error.
func TagOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Tag
	}
	return ""
}

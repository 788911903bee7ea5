package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies an error kind; codes are stable across the API surface.
type ErrorCode int

const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
)

const (
	ErrNotAMember ErrorCode = iota + 2000
	ErrThreadLocked
	ErrDuplicateMember
	ErrLastOwner
	ErrInvalidReply
	ErrInvalidVisibility
	ErrStoreUnavailable
	ErrDispatchEnqueueFailed
)

// AppError carries an error kind alongside the wrapped cause.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
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

// CodeOf extracts the ErrorCode from err, or ErrInternal if err is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

func newError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource), err)
}

func BadRequest(message string, err error) *AppError {
	return newError(ErrBadRequest, message, err)
}

func Unauthorized(err error) *AppError {
	return newError(ErrUnauthorized, "unauthorized", err)
}

func Forbidden(message string) *AppError {
	return newError(ErrForbidden, message, nil)
}

func Internal(err error) *AppError {
	return newError(ErrInternal, "internal server error", err)
}

func NotAMember(userID string) *AppError {
	return newError(ErrNotAMember, fmt.Sprintf("user %s is not a member of this thread", userID), nil)
}

func ThreadLocked(message string) *AppError {
	return newError(ErrThreadLocked, message, nil)
}

func DuplicateMember(userID string) *AppError {
	return newError(ErrDuplicateMember, fmt.Sprintf("user %s is already a member", userID), nil)
}

func LastOwner() *AppError {
	return newError(ErrLastOwner, "cannot remove the only owner of a thread", nil)
}

func InvalidReply(message string) *AppError {
	return newError(ErrInvalidReply, message, nil)
}

func InvalidVisibility(message string) *AppError {
	return newError(ErrInvalidVisibility, message, nil)
}

func StoreUnavailable(err error) *AppError {
	return newError(ErrStoreUnavailable, "store temporarily unavailable", err)
}

func DispatchEnqueueFailed(err error) *AppError {
	return newError(ErrDispatchEnqueueFailed, "failed to enqueue delivery job", err)
}

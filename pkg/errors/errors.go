package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable, machine-readable identifier sent to clients
type ErrorCode string

// AppError represents an application error
type AppError struct {
	Code    ErrorCode              `json:"errorCode"`
	Status  int                    `json:"-"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode lets middleware.ErrorHandler pick the HTTP status.
func (e *AppError) StatusCode() int {
	return e.Status
}

// WithDetail returns the error with an extra client-visible detail.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common error codes
const (
	ErrNotFound   ErrorCode = "not_found"
	ErrBadRequest ErrorCode = "bad_request"
	ErrForbidden  ErrorCode = "forbidden"
	ErrConflict   ErrorCode = "conflict"
	ErrInternal   ErrorCode = "internal_error"
)

// New builds an error with an explicit code and status.
func New(code ErrorCode, status int, message string) *AppError {
	return &AppError{Code: code, Status: status, Message: message}
}

// Error constructors
func NotFound(code ErrorCode, message string) *AppError {
	return New(code, http.StatusNotFound, message)
}

func BadRequest(code ErrorCode, message string) *AppError {
	return New(code, http.StatusBadRequest, message)
}

func Forbidden(code ErrorCode, message string) *AppError {
	return New(code, http.StatusForbidden, message)
}

func Conflict(code ErrorCode, message string) *AppError {
	return New(code, http.StatusConflict, message)
}

// Internal hides err behind a fixed message; err is kept for logging only.
func Internal(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Status: http.StatusInternalServerError, Message: message, Err: err}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an *AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

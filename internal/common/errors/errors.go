package errors

import (
	"fmt"
	"net/http"
)

// Code classifies an error into one of the categories the gateway is allowed
// to surface. Every code maps to exactly one HTTP status.
type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeAuth            Code = "AUTH_ERROR"
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"
	CodeUpstreamTimeout Code = "UPSTREAM_TIMEOUT"
	CodeUpstreamBusy    Code = "UPSTREAM_BUSY"
	CodeUpstreamFailure Code = "UPSTREAM_FAILURE"
	CodeUpstreamEmpty   Code = "UPSTREAM_EMPTY"
	CodeConfig          Code = "CONFIG_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// AppError is a typed gateway error. Message is the only part that may reach
// a client; Reason and Cause stay in server-side logs.
type AppError struct {
	Code    Code
	Message string
	Reason  string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithReason attaches an internal reason tag for logging. It never contains
// caller-supplied content.
func (e *AppError) WithReason(reason string) *AppError {
	e.Reason = reason
	return e
}

// New creates a new gateway error with a client-safe message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a cause to a new gateway error.
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: err}
}

// AsAppError extracts an AppError from err, if it is one.
func AsAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}

// HTTPStatus maps an error code to the response status the gateway emits.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAuth:
		return http.StatusForbidden
	case CodeTooManyRequests, CodeUpstreamBusy:
		return http.StatusTooManyRequests
	case CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case CodeUpstreamFailure, CodeUpstreamEmpty:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsUpstream reports whether the error originated from the generation service.
func (e *AppError) IsUpstream() bool {
	switch e.Code {
	case CodeUpstreamTimeout, CodeUpstreamBusy, CodeUpstreamFailure, CodeUpstreamEmpty:
		return true
	}
	return false
}

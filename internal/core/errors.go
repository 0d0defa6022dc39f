package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to clients in the machine-readable "code" field.
const (
	ErrCodeConfig             = "CONFIG_ERROR"
	ErrCodeMalformedRequest   = "MALFORMED_REQUEST"
	ErrCodePromptTooLarge     = "PROMPT_TOO_LARGE"
	ErrCodeUpstreamTimeout    = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamError      = "UPSTREAM_ERROR"
	ErrCodeNetworkFailure     = "NETWORK_FAILURE"
	ErrCodeStoreNotConfigured = "SUPABASE_NOT_CONFIGURED"
)

// AppError is the unified application error: a machine code, a short
// human-readable message, the HTTP status it maps to, and an optional
// underlying cause. Upstream diagnostic bodies are never carried here;
// they are logged server-side only.
type AppError struct {
	Code    string
	Message string
	Status  int
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap supports errors.Is / errors.As chains.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrConfig reports a missing or invalid credential. Fatal to the call.
func ErrConfig(message string) *AppError {
	return &AppError{Code: ErrCodeConfig, Message: message, Status: http.StatusInternalServerError}
}

// ErrMalformedRequest reports a bad JSON body or missing required field.
func ErrMalformedRequest(message string) *AppError {
	return &AppError{Code: ErrCodeMalformedRequest, Message: message, Status: http.StatusBadRequest}
}

// ErrPromptTooLarge reports a prompt above the character cap.
func ErrPromptTooLarge(limit int) *AppError {
	return &AppError{
		Code:    ErrCodePromptTooLarge,
		Message: fmt.Sprintf("prompt exceeds %d characters", limit),
		Status:  http.StatusBadRequest,
	}
}

// ErrUpstreamTimeout reports the outbound call missing its deadline.
func ErrUpstreamTimeout(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeUpstreamTimeout,
		Message: "upstream request timed out",
		Status:  http.StatusGatewayTimeout,
		Cause:   cause,
	}
}

// ErrUpstream reports a non-success upstream status. The upstream status
// is propagated where sensible, defaulting to 502 when unusable.
func ErrUpstream(upstreamStatus int) *AppError {
	status := http.StatusBadGateway
	if upstreamStatus >= 400 && upstreamStatus <= 599 {
		status = upstreamStatus
	}
	return &AppError{
		Code:    ErrCodeUpstreamError,
		Message: fmt.Sprintf("upstream returned status %d", upstreamStatus),
		Status:  status,
	}
}

// ErrUpstreamEmptyBody reports a success status with no body to relay.
func ErrUpstreamEmptyBody() *AppError {
	return &AppError{
		Code:    ErrCodeUpstreamError,
		Message: "upstream returned an empty body",
		Status:  http.StatusBadGateway,
	}
}

// ErrNetworkFailure reports an unreachable upstream.
func ErrNetworkFailure(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeNetworkFailure,
		Message: "upstream request failed",
		Status:  http.StatusBadGateway,
		Cause:   cause,
	}
}

// ErrStoreNotConfigured reports an absent persistence backend. Soft
// error: the HTTP layer answers 200 with ok:false so clients can
// degrade to local-only state.
func ErrStoreNotConfigured() *AppError {
	return &AppError{
		Code:    ErrCodeStoreNotConfigured,
		Message: "persistence backend is not configured",
		Status:  http.StatusOK,
	}
}

// AsAppError extracts an *AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

package llm

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	CodeRateLimited        ErrorCode = "rate_limited"
	CodeTimedOut           ErrorCode = "timed_out"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeServerError        ErrorCode = "server_error"
	CodeInvalidResponse    ErrorCode = "invalid_response"
	CodeBackendUnavailable ErrorCode = "backend_unavailable"
	CodeModelNotFound      ErrorCode = "model_not_found"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeEmptyResponse      ErrorCode = "empty_response"
	CodeTruncatedResponse  ErrorCode = "truncated_response"
	CodeGenericResponse    ErrorCode = "generic_response"
	CodeHTTPError          ErrorCode = "http_error"
	CodeTransport          ErrorCode = "transport_error"
)

// BackendError is the only error type adapters return.
type BackendError struct {
	Backend string
	Code    ErrorCode
	Status  int
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("backend %s: %s", e.Backend, e.Code)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func newError(backend string, code ErrorCode, message string, err error) *BackendError {
	return &BackendError{Backend: backend, Code: code, Message: message, Err: err}
}

// statusError maps a non-2xx HTTP status to a typed error.
func statusError(backend string, status int, body string) *BackendError {
	code := CodeHTTPError
	switch {
	case status == http.StatusTooManyRequests:
		code = CodeRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = CodeUnauthorized
	case status == http.StatusNotFound:
		code = CodeModelNotFound
	case status == http.StatusUnprocessableEntity:
		code = CodeValidationFailed
	case status == http.StatusRequestTimeout:
		code = CodeTimedOut
	case status >= 500:
		code = CodeServerError
	}
	return &BackendError{Backend: backend, Code: code, Status: status, Message: truncate(body, 512)}
}

// AsBackendError unwraps err to a *BackendError, or returns nil.
func AsBackendError(err error) *BackendError {
	var be *BackendError
	if errors.As(err, &be) {
		return be
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package domain

import (
	"fmt"
	"net/http"
)

// Code is the stable machine-readable discriminator carried on every
// gateway-generated failure response. Clients branch on it; the message
// next to it is intentionally generic.
type Code string

const (
	CodeMissingCredential  Code = "missing_credential"
	CodeInvalidCredential  Code = "invalid_credential"
	CodeExpiredCredential  Code = "expired_credential"
	CodeRateLimited        Code = "rate_limited"
	CodeRouteNotFound      Code = "route_not_found"
	CodeBackendUnreachable Code = "backend_unreachable"
	CodeBackendTimeout     Code = "backend_timeout"
	CodePayloadTooLarge    Code = "payload_too_large"
	CodeInternalError      Code = "internal_error"
)

type GatewayError struct {
	Code    Code
	Status  int
	Message string
	cause   error
}

func (e *GatewayError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.cause)
	}
	return string(e.Code)
}

func (e *GatewayError) Unwrap() error {
	return e.cause
}

// WithCause returns a copy of the error carrying the underlying failure.
// The cause is for logs only and never serialized to callers.
func (e *GatewayError) WithCause(err error) *GatewayError {
	return &GatewayError{Code: e.Code, Status: e.Status, Message: e.Message, cause: err}
}

func newError(code Code, status int, message string) *GatewayError {
	return &GatewayError{Code: code, Status: status, Message: message}
}

// The credential kinds share one status and one generic message so the
// response cannot be used as an oracle; the kind only reaches the logs.
var (
	ErrMissingCredential  = newError(CodeMissingCredential, http.StatusUnauthorized, "authentication required")
	ErrInvalidCredential  = newError(CodeInvalidCredential, http.StatusUnauthorized, "authentication required")
	ErrExpiredCredential  = newError(CodeExpiredCredential, http.StatusUnauthorized, "authentication required")
	ErrRateLimited        = newError(CodeRateLimited, http.StatusTooManyRequests, "rate limit exceeded")
	ErrRouteNotFound      = newError(CodeRouteNotFound, http.StatusNotFound, "no route for path")
	ErrBackendUnreachable = newError(CodeBackendUnreachable, http.StatusBadGateway, "upstream unavailable")
	ErrBackendTimeout     = newError(CodeBackendTimeout, http.StatusGatewayTimeout, "upstream timed out")
	ErrPayloadTooLarge    = newError(CodePayloadTooLarge, http.StatusRequestEntityTooLarge, "request body too large")
	ErrInternalError      = newError(CodeInternalError, http.StatusInternalServerError, "internal server error")
)

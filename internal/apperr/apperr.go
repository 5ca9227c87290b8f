// Package apperr defines the error taxonomy shared by the stores, services and HTTP layer.
//
// Producers wrap one of the sentinels with context (fmt.Errorf("order %s: %w", id, ErrNotFound))
// and the HTTP layer classifies with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrAuthenticationMissing = errors.New("authentication missing")
	ErrAuthenticationInvalid = errors.New("authentication invalid")
	ErrAuthorizationDenied   = errors.New("authorization denied")
	ErrNotFound              = errors.New("not found")
	ErrValidationFailed      = errors.New("validation failed")
	ErrUpstreamFailure       = errors.New("upstream failure")
)

// Code is the machine-readable error code written in response bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAuthenticationMissing):
		return "authentication_missing"
	case errors.Is(err, ErrAuthenticationInvalid):
		return "authentication_invalid"
	case errors.Is(err, ErrAuthorizationDenied):
		return "authorization_denied"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidationFailed):
		return "validation_failed"
	case errors.Is(err, ErrUpstreamFailure):
		return "upstream_failure"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps err onto a response status. Unclassified errors are 500s.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrAuthenticationMissing), errors.Is(err, ErrAuthenticationInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorizationDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Exposable reports whether err's message may be shown to the caller as is.
// Upstream and unexpected failures are logged and answered generically.
func Exposable(err error) bool {
	return HTTPStatus(err) < http.StatusInternalServerError
}

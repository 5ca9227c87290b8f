package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("header: %w", ErrAuthenticationMissing), http.StatusUnauthorized, "authentication_missing"},
		{fmt.Errorf("token: %w", ErrAuthenticationInvalid), http.StatusUnauthorized, "authentication_invalid"},
		{fmt.Errorf("role: %w", ErrAuthorizationDenied), http.StatusForbidden, "authorization_denied"},
		{fmt.Errorf("order o1: %w", ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("cancel: %w", ErrValidationFailed), http.StatusBadRequest, "validation_failed"},
		{fmt.Errorf("stripe: %w", ErrUpstreamFailure), http.StatusBadGateway, "upstream_failure"},
		{errors.New("dynamodb exploded"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, HTTPStatus(tc.err), tc.err.Error())
		assert.Equal(t, tc.code, Code(tc.err), tc.err.Error())
	}
}

func TestExposable(t *testing.T) {
	assert.True(t, Exposable(fmt.Errorf("x: %w", ErrValidationFailed)))
	assert.False(t, Exposable(fmt.Errorf("x: %w", ErrUpstreamFailure)))
	assert.False(t, Exposable(errors.New("raw")))
}

package acl

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-keeper/internal/adapters/clients"
	"github.com/jsamuelsen/quote-keeper/internal/domain"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    &http.Request{URL: &url.URL{Path: "/posts"}},
	}
}

func TestMapHTTPError_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{name: "not found", status: http.StatusNotFound, sentinel: domain.ErrNotFound, message: "/posts"},
		{name: "bad request", status: http.StatusBadRequest, sentinel: domain.ErrValidation, message: "fetch quotes failed with status 400"},
		{name: "unprocessable with message", status: http.StatusUnprocessableEntity, body: `{"error":{"code":"BAD","message":"bad filter"}}`, sentinel: domain.ErrValidation, message: "bad filter"},
		{name: "unauthorized", status: http.StatusUnauthorized, sentinel: domain.ErrUnavailable, message: "access denied"},
		{name: "forbidden", status: http.StatusForbidden, body: `{"message":"nope"}`, sentinel: domain.ErrUnavailable, message: "nope"},
		{name: "rate limited", status: http.StatusTooManyRequests, sentinel: domain.ErrUnavailable, message: "rate limit exceeded"},
		{name: "bad gateway", status: http.StatusBadGateway, sentinel: domain.ErrUnavailable, message: "status 502"},
		{name: "teapot", status: http.StatusTeapot, sentinel: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(response(tt.status, tt.body), nil, "remote-quotes", "fetch quotes")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestMapHTTPError_SuccessReturnsNil(t *testing.T) {
	assert.NoError(t, MapHTTPError(response(http.StatusOK, "[]"), nil, "remote-quotes", "fetch quotes"))
	assert.NoError(t, MapHTTPError(response(http.StatusNoContent, ""), nil, "remote-quotes", "fetch quotes"))
}

func TestMapHTTPError_NilResponse(t *testing.T) {
	err := MapHTTPError(nil, nil, "remote-quotes", "fetch quotes")

	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
	assert.Contains(t, err.Error(), "no response received")
}

func TestMapHTTPError_NoRequestOnResponse(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}

	assert.True(t, domain.IsNotFound(MapHTTPError(resp, nil, "remote-quotes", "fetch quotes")))
}

func TestMapHTTPError_ClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{name: "circuit open", err: clients.ErrCircuitOpen, message: "circuit breaker open during fetch quotes"},
		{name: "retries exhausted", err: errors.Join(clients.ErrMaxRetriesExceeded, errors.New("server error: 503")), message: "max retries exceeded during fetch quotes"},
		{name: "other", err: errors.New("dial tcp: refused"), message: "fetch quotes failed: dial tcp: refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(nil, tt.err, "remote-quotes", "fetch quotes")

			assert.True(t, domain.IsUnavailable(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParseErrorResponse(t *testing.T) {
	nested := ParseErrorResponse(strings.NewReader(`{"error":{"code":"NOT_FOUND","message":"gone"}}`))
	require.NotNil(t, nested)
	assert.Equal(t, "NOT_FOUND", nested.GetCode())
	assert.Equal(t, "gone", nested.GetMessage())

	flat := ParseErrorResponse(strings.NewReader(`{"code":"LIMIT","message":"slow down"}`))
	require.NotNil(t, flat)
	assert.Equal(t, "LIMIT", flat.GetCode())
	assert.Equal(t, "slow down", flat.GetMessage())

	assert.Nil(t, ParseErrorResponse(strings.NewReader(`not json`)))
	assert.Nil(t, ParseErrorResponse(strings.NewReader(`{}`)))
	assert.Nil(t, ParseErrorResponse(strings.NewReader(``)))
	assert.Nil(t, ParseErrorResponse(nil))
}

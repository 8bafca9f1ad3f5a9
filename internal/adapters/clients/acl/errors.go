package acl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/quote-keeper/internal/adapters/clients"
	"github.com/jsamuelsen/quote-keeper/internal/domain"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// ErrorResponse is the error body some upstreams return, either nested
// ({"error":{"code","message"}}) or flat ({"code","message"}).
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorDetail is the nested error object.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetCode returns the nested code, falling back to the flat one.
func (e *ErrorResponse) GetCode() string {
	if e.Error.Code != "" {
		return e.Error.Code
	}

	return e.Code
}

// GetMessage returns the nested message, falling back to the flat one.
func (e *ErrorResponse) GetMessage() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}

	return e.Message
}

// ParseErrorResponse decodes an error body. It returns nil when the body is
// missing, not JSON, or carries neither code nor message.
func ParseErrorResponse(body io.Reader) *ErrorResponse {
	if body == nil {
		return nil
	}

	var errResp ErrorResponse

	err := json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&errResp)
	if err != nil {
		return nil
	}

	if errResp.GetCode() == "" && errResp.GetMessage() == "" {
		return nil
	}

	return &errResp
}

// MapHTTPError turns a client failure or a non-2xx response into a domain
// error. It returns nil for 2xx responses.
func MapHTTPError(resp *http.Response, clientErr error, serviceName, operation string) error {
	if clientErr != nil {
		return mapClientError(clientErr, serviceName, operation)
	}

	if resp == nil {
		return domain.NewUnavailableError(serviceName, "no response received")
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	message := fmt.Sprintf("%s failed with status %d", operation, resp.StatusCode)
	if errResp := ParseErrorResponse(resp.Body); errResp != nil && errResp.GetMessage() != "" {
		message = errResp.GetMessage()
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewNotFoundError(serviceName, requestPath(resp))
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return domain.NewUnavailableError(serviceName, "access denied: "+message)
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewUnavailableError(serviceName, "rate limit exceeded")
	case resp.StatusCode >= http.StatusInternalServerError:
		return domain.NewUnavailableError(serviceName, message)
	default:
		return domain.NewValidationError("", message)
	}
}

func mapClientError(err error, serviceName, operation string) error {
	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewUnavailableError(serviceName, "circuit breaker open during "+operation)
	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		return domain.NewUnavailableError(serviceName, "max retries exceeded during "+operation)
	default:
		return domain.NewUnavailableError(serviceName, fmt.Sprintf("%s failed: %v", operation, err))
	}
}

func requestPath(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}

	return resp.Request.URL.Path
}

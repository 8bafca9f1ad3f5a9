// Package dto holds the HTTP request and response shapes and the mapping from
// domain errors to the error envelope.
package dto

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-keeper/internal/domain"
	"github.com/jsamuelsen/quote-keeper/internal/platform/logging"
)

// ErrorResponse is the envelope every error response uses.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail carries the machine-readable code and the human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Details maps field names to messages for validation failures.
	Details map[string]string `json:"details,omitempty"`
}

// Error codes.
const (
	ErrorCodeNotFound               = "NOT_FOUND"
	ErrorCodeValidation             = "VALIDATION_ERROR"
	ErrorCodeImport                 = "IMPORT_ERROR"
	ErrorCodeForbidden              = "FORBIDDEN"
	ErrorCodeUnauthorized           = "UNAUTHORIZED"
	ErrorCodeUnavailable            = "SERVICE_UNAVAILABLE"
	ErrorCodePersistenceUnavailable = "PERSISTENCE_UNAVAILABLE"
	ErrorCodeSyncFetch              = "SYNC_FETCH_FAILED"
	ErrorCodeInternal               = "INTERNAL_ERROR"
	ErrorCodeTimeout                = "TIMEOUT"
	ErrorCodeBadRequest             = "BAD_REQUEST"
	ErrorCodePayloadTooLarge        = "PAYLOAD_TOO_LARGE"
)

// ContextKeyTraceID is the gin context key GetTraceID reads first.
const ContextKeyTraceID = "trace_id"

const internalErrorMessage = "an internal error occurred"

// NewErrorResponse creates an error envelope.
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// NewErrorResponseWithDetails creates an error envelope with field details.
func NewErrorResponseWithDetails(code, message string, details map[string]string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Details: details}}
}

// WithTraceID sets the trace ID and returns e.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID

	return e
}

// HTTPStatusFromCode maps an error code to its HTTP status.
func HTTPStatusFromCode(code string) int {
	switch code {
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeValidation, ErrorCodeImport, ErrorCodeBadRequest:
		return http.StatusBadRequest
	case ErrorCodeForbidden:
		return http.StatusForbidden
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeUnavailable, ErrorCodePersistenceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeSyncFetch:
		return http.StatusBadGateway
	case ErrorCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrorCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// MapDomainError converts err into a status and envelope. Import is checked
// before validation because a rejected import item wraps both. Unknown errors
// become a 500 with a generic message.
func MapDomainError(err error) (int, *ErrorResponse) {
	var code string

	switch {
	case domain.IsImport(err):
		code = ErrorCodeImport
	case domain.IsValidation(err):
		resp := NewErrorResponse(ErrorCodeValidation, err.Error())

		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field != "" {
			resp.Error.Details = map[string]string{validationErr.Field: validationErr.Message}
		}

		return http.StatusBadRequest, resp
	case domain.IsNotFound(err):
		code = ErrorCodeNotFound
	case domain.IsSyncFetch(err):
		code = ErrorCodeSyncFetch
	case domain.IsPersistence(err):
		code = ErrorCodePersistenceUnavailable
	case domain.IsUnavailable(err):
		code = ErrorCodeUnavailable
	default:
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, internalErrorMessage)
	}

	return HTTPStatusFromCode(code), NewErrorResponse(code, err.Error())
}

// GetTraceID returns the trace ID for the response: the gin context value,
// then the X-Request-ID header, then the active span's trace ID.
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyTraceID); ok {
		if id, ok := v.(string); ok {
			return id
		}

		return ""
	}

	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}

	if c.Request != nil {
		if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.HasTraceID() {
			return sc.TraceID().String()
		}
	}

	return ""
}

// HandleError writes the envelope for err. Internal errors are logged with
// their real cause, which is never sent to the client.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.TraceID = GetTraceID(c)

	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "internal error",
			"error", err.Error(),
			"trace_id", resp.TraceID,
		)
	}

	c.JSON(status, resp)
}

// AbortWithCode aborts the chain with an envelope for code.
func AbortWithCode(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(HTTPStatusFromCode(code), NewErrorResponse(code, message).WithTraceID(GetTraceID(c)))
}

// Package middleware provides the gin middleware chain of the quote API.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-keeper/internal/platform/logging"
)

const (
	// HeaderRequestID is the header name for request ID.
	HeaderRequestID = "X-Request-ID"

	// ContextKeyRequestID is the gin context key for the request ID.
	ContextKeyRequestID = "request_id"
)

// RequestID returns middleware that takes X-Request-ID from the request or
// generates one. The ID is echoed in the response, attached to the context
// logger and stored for the outbound client to forward.
func RequestID() gin.HandlerFunc {
	return createIDMiddleware(idMiddlewareConfig{
		headerName: HeaderRequestID,
		contextKey: ContextKeyRequestID,
		enrichers:  []idEnricher{ContextWithRequestID, logging.WithRequestID},
	})
}

// GetRequestID returns the request ID, or "" when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeyRequestID)
}

package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-keeper/internal/platform/logging"
)

const (
	// HeaderCorrelationID is the header name for correlation ID.
	// Unlike the request ID it is kept across service hops.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyCorrelationID is the gin context key for the correlation ID.
	ContextKeyCorrelationID = "correlation_id"
)

// CorrelationID returns middleware that propagates X-Correlation-ID, starting
// a new one when this request is the origin.
func CorrelationID() gin.HandlerFunc {
	return createIDMiddleware(idMiddlewareConfig{
		headerName: HeaderCorrelationID,
		contextKey: ContextKeyCorrelationID,
		enrichers:  []idEnricher{ContextWithCorrelationID, logging.WithCorrelationID},
	})
}

// GetCorrelationID returns the correlation ID, or "" when the middleware did not run.
func GetCorrelationID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeyCorrelationID)
}

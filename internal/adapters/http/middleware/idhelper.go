package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxIDLength bounds inbound IDs so a client cannot bloat every log line.
const maxIDLength = 128

// idEnricher attaches an ID to the request context.
type idEnricher func(ctx context.Context, id string) context.Context

// idMiddlewareConfig configures one ID middleware.
type idMiddlewareConfig struct {
	headerName string
	contextKey string
	enrichers  []idEnricher
}

// createIDMiddleware reads the ID header or generates a UUID, then exposes the
// ID on the gin context, the response headers and the request context.
func createIDMiddleware(cfg idMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(cfg.headerName)
		if id == "" || len(id) > maxIDLength {
			id = uuid.New().String()
		}

		c.Set(cfg.contextKey, id)
		c.Header(cfg.headerName, id)

		ctx := c.Request.Context()
		for _, enrich := range cfg.enrichers {
			ctx = enrich(ctx, id)
		}

		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func getIDFromContext(c *gin.Context, key string) string {
	if id, exists := c.Get(key); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}

	return ""
}

package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-keeper/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-keeper/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-keeper/internal/platform/config"
	"github.com/jsamuelsen/quote-keeper/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default timeout for API requests.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	Logger *slog.Logger

	// AuthConfig gates POST /sync behind the admin role when Enabled.
	AuthConfig *config.AuthConfig

	AppConfig     *config.AppConfig
	HealthHandler *handlers.HealthHandler
	QuoteHandler  *handlers.QuoteHandler

	// Timeout is the API request deadline. Zero disables it.
	Timeout time.Duration

	// TimeoutSkipPaths get no deadline, e.g. large imports.
	TimeoutSkipPaths []string
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Request ID - generate/extract request ID
//  3. Correlation ID - propagate the cross-service correlation ID
//  4. OpenTelemetry - tracing and metrics
//  5. Logging - request logging (skips health endpoints)
//  6. Timeout - request deadline on /api/v1 only
//
// Route groups:
//   - /-/ (internal): health, build info and metrics, no auth
//   - /api/v1/: the quote collection, sync and notifications
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	serviceName := "quote-keeper"
	if cfg.AppConfig != nil && cfg.AppConfig.Name != "" {
		serviceName = cfg.AppConfig.Name
	}

	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(serviceName)...)
	engine.Use(middleware.Logging(cfg.Logger))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	apiV1 := engine.Group("/api/v1")
	if cfg.Timeout > 0 {
		apiV1.Use(middleware.Timeout(cfg.Timeout, cfg.TimeoutSkipPaths...))
	}

	setupAPIRoutes(apiV1, cfg)
}

func setupAPIRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.QuoteHandler == nil {
		return
	}

	cfg.QuoteHandler.RegisterQuoteRoutes(rg, syncGuards(cfg.AuthConfig)...)
}

// syncGuards returns the middleware in front of POST /sync.
func syncGuards(auth *config.AuthConfig) []gin.HandlerFunc {
	if auth == nil || !auth.Enabled {
		return nil
	}

	return []gin.HandlerFunc{
		middleware.RequireAuth(auth),
		middleware.RequireRole(auth, middleware.RoleAdmin),
	}
}

// SetupMinimalRouter sets up a router with just health endpoints.
func SetupMinimalRouter(engine *gin.Engine, logger *slog.Logger, healthHandler *handlers.HealthHandler) {
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
	)

	if healthHandler != nil {
		healthHandler.RegisterHealthRoutesOnEngine(engine)
	}
}

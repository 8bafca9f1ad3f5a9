package middleware

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-keeper/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-keeper/internal/platform/config"
)

const (
	// ContextKeyClaims is the gin context key for the extracted claims.
	ContextKeyClaims = "claims"

	// RoleAdmin may trigger manual sync cycles.
	RoleAdmin = "admin"

	defaultSubjectHeader = "X-User-ID"
	defaultRolesHeader   = "X-User-Roles"
	defaultScopesHeader  = "X-User-Scopes"
)

// Claims are the caller identity forwarded by the gateway in headers.
// The gateway validates the token; this service only reads the result.
type Claims struct {
	Subject string
	Roles   []string
	Scopes  []string
}

// HasRole reports whether the caller holds role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasAnyRole reports whether the caller holds at least one of roles.
func (c *Claims) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, c.HasRole)
}

// HasScope reports whether the caller was granted scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ExtractClaims reads the claims headers named in cfg, or the defaults.
// Roles are comma-separated, scopes space-separated.
func ExtractClaims(c *gin.Context, cfg *config.AuthConfig) *Claims {
	subjectHeader, rolesHeader, scopesHeader := defaultSubjectHeader, defaultRolesHeader, defaultScopesHeader

	if cfg != nil {
		subjectHeader = firstNonEmpty(cfg.SubjectHeader, subjectHeader)
		rolesHeader = firstNonEmpty(cfg.RolesHeader, rolesHeader)
		scopesHeader = firstNonEmpty(cfg.ScopesHeader, scopesHeader)
	}

	return &Claims{
		Subject: strings.TrimSpace(c.GetHeader(subjectHeader)),
		Roles:   parseCommaSeparated(c.GetHeader(rolesHeader)),
		Scopes:  strings.Fields(c.GetHeader(scopesHeader)),
	}
}

// GetClaims returns the claims stored by RequireAuth, or nil.
func GetClaims(c *gin.Context) *Claims {
	claims, _ := c.Get(ContextKeyClaims)
	cl, _ := claims.(*Claims)

	return cl
}

// RequireAuth rejects requests without a subject with 401.
func RequireAuth(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ExtractClaims(c, cfg)
		if claims.Subject == "" {
			dto.AbortWithCode(c, dto.ErrorCodeUnauthorized, "authentication required")
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireRole rejects callers without role with 403.
func RequireRole(cfg *config.AuthConfig, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			claims = ExtractClaims(c, cfg)
			c.Set(ContextKeyClaims, claims)
		}

		if !claims.HasRole(role) {
			dto.AbortWithCode(c, dto.ErrorCodeForbidden, "insufficient permissions: role "+role+" required")
			return
		}

		c.Next()
	}
}

func firstNonEmpty(value, fallback string) string {
	if value != "" {
		return value
	}

	return fallback
}

func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))

	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

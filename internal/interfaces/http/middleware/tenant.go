package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// TenantIDKey holds the parsed uuid.UUID in the gin context
	TenantIDKey     = "tenant_uuid"
	TenantHeaderKey = "X-Tenant-ID"
	// MaxTenantIDLength bounds the raw header before parsing
	MaxTenantIDLength = 64
)

var (
	errTenantMissing = errors.New("tenant header missing")
	errTenantInvalid = errors.New("tenant header is not a tenant uuid")
)

// TenantMiddlewareConfig holds configuration for tenant middleware
type TenantMiddlewareConfig struct {
	// SkipPaths need no tenant; everything below them is skipped too
	SkipPaths []string
	// Required rejects requests without a tenant header
	Required bool
	Logger   *zap.Logger
}

// DefaultTenantConfig requires a tenant everywhere except health and scrape endpoints
func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		SkipPaths: []string{"/health", "/healthz", "/metrics"},
		Required:  true,
	}
}

// TenantMiddleware resolves the tenant from X-Tenant-ID with the default configuration
func TenantMiddleware() gin.HandlerFunc {
	return TenantMiddlewareWithConfig(DefaultTenantConfig())
}

// TenantMiddlewareWithConfig resolves the tenant every ledger query is
// scoped to. The tenant is stored in the gin context for handlers and in
// the request context for logging.
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if underAny(c.Request.URL.Path, cfg.SkipPaths) {
			c.Next()
			return
		}

		tenantID, err := parseTenantHeader(c.GetHeader(TenantHeaderKey))
		switch {
		case errors.Is(err, errTenantMissing) && !cfg.Required:
			c.Next()
			return
		case errors.Is(err, errTenantMissing):
			abortTenant(c, dto.ErrCodeTenantRequired, "Tenant identification required")
			return
		case err != nil:
			abortTenant(c, dto.ErrCodeTenantInvalid, "Invalid tenant ID format")
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Request = c.Request.WithContext(logger.WithTenantID(c.Request.Context(), tenantID.String()))
		if cfg.Logger != nil {
			logger.For(c.Request.Context(), cfg.Logger).Debug("Tenant identified")
		}
		c.Next()
	}
}

func parseTenantHeader(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, errTenantMissing
	}
	if len(raw) > MaxTenantIDLength {
		return uuid.Nil, errTenantInvalid
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errTenantInvalid
	}
	return id, nil
}

// underAny reports whether path equals one of prefixes or lies below it
func underAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func abortTenant(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetTenantUUID returns the tenant set by TenantMiddleware, or uuid.Nil
func GetTenantUUID(c *gin.Context) uuid.UUID {
	v, _ := c.Get(TenantIDKey)
	id, _ := v.(uuid.UUID)
	return id
}

// GetTenantID returns the tenant as a string, or "" when absent
func GetTenantID(c *gin.Context) string {
	if id := GetTenantUUID(c); id != uuid.Nil {
		return id.String()
	}
	return ""
}

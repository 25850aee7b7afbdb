package middleware

import (
	"net/http"

	"finance-service/internal/tenant"
	"finance-service/pkg/logger"
	"finance-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequireBusinessContext resolves the tenant scope for routes without a
// request body (header then query; write handlers resolve in-handler so
// the body field participates). Resolution failure aborts the request:
// scope is never silently widened.
func RequireBusinessContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		userID, ok := c.Get("user_id").(uint)
		if !ok {
			log.Error("Failed to get user ID from context")
			prometheus.RecordAuthError("unauthorized_business_access")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}

		ref := tenant.RefFromRequest(c, "")
		bc, err := tenant.Resolve(userID, ref)
		if err != nil {
			return RenderTenantError(c, err)
		}

		switch {
		case bc.Consolidated:
			prometheus.RecordTenantResolution("consolidated")
		case ref == "":
			prometheus.RecordTenantResolution("default")
		default:
			prometheus.RecordTenantResolution("explicit")
		}

		c.Set("business_ctx", bc)
		return next(c)
	}
}

// BusinessContext retrieves the scope resolved by RequireBusinessContext.
func BusinessContext(c echo.Context) (*tenant.Context, bool) {
	bc, ok := c.Get("business_ctx").(*tenant.Context)
	return bc, ok
}

// RenderTenantError maps tenant resolution errors to responses. Both
// client errors are terminal for the request and must not be retried.
func RenderTenantError(c echo.Context, err error) error {
	log := logger.FromContext(c)

	switch err {
	case tenant.ErrNoBusinessAvailable:
		prometheus.RecordTenantResolution("none")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no business unit available"})
	case tenant.ErrAccessDenied:
		prometheus.RecordTenantResolution("denied")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	case tenant.ErrAmbiguousBusiness:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "operation requires a concrete business unit"})
	default:
		log.Error("Tenant resolution failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant resolution failed"})
	}
}

package middleware

import (
	"net/http"
	"strings"

	"finance-service/internal/model"
	"finance-service/internal/planlife"
	"finance-service/pkg/database"
	"finance-service/pkg/jwtutil"
	"finance-service/pkg/logger"
	"finance-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the JWT token from the Authorization header,
// loads the user record fresh (plan and permission changes must be visible
// on the very next request) and resolves the effective plan, applying the
// expiry side effect inline.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		var user model.User
		if result := database.GetDB().First(&user, claims.UserID); result.Error != nil {
			log.Error("Token user no longer exists", zap.Uint("user_id", claims.UserID))
			prometheus.RecordAuthError("user_not_found")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		if user.Blocked {
			log.Warn("Blocked user attempted access", zap.Uint("user_id", user.ID))
			prometheus.RecordAuthError("user_blocked")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "account blocked"})
		}

		effective, err := planlife.ResolveEffective(&user)
		if err != nil {
			log.Error("Failed to resolve effective plan", zap.Uint("user_id", user.ID), zap.Error(err))
			prometheus.RecordAuthError("plan_resolution_failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "plan resolution failed"})
		}

		c.Set("user_id", user.ID)
		c.Set("email", user.Email)
		c.Set("user_role", user.Role)
		c.Set("user", &user)
		c.Set("effective_plan", effective)

		return next(c)
	}
}

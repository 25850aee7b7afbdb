package handler

import (
	"net/http"
	"time"

	"finance-service/internal/model"
	"finance-service/pkg/database"
	"finance-service/pkg/logger"
	"finance-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListPlans returns the active subscription tiers, cheapest first.
func ListPlans(c echo.Context) error {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var plans []model.Plan
	if result := database.GetDB().
		Where("active = ?", true).
		Order("price ASC").
		Find(&plans); result.Error != nil {
		log.Error("Failed to list plans", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve plans"})
	}

	return c.JSON(http.StatusOK, plans)
}

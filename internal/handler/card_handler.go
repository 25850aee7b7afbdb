package handler

import (
	"net/http"
	"strconv"
	"time"

	"finance-service/internal/model"
	"finance-service/pkg/database"
	"finance-service/pkg/logger"
	"finance-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func ListCreditCards(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var cards []model.CreditCard
	if result := database.GetDB().
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&cards); result.Error != nil {
		log.Error("Failed to list credit cards", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve credit cards"})
	}

	return c.JSON(http.StatusOK, cards)
}

func CreateCreditCard(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Name       string `json:"name"`
		Brand      string `json:"brand,omitempty"`
		LastFour   string `json:"last_four,omitempty"`
		ClosingDay int    `json:"closing_day,omitempty"`
		DueDay     int    `json:"due_day,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	card := model.CreditCard{
		UserID:     userID,
		Name:       req.Name,
		Brand:      req.Brand,
		LastFour:   req.LastFour,
		ClosingDay: req.ClosingDay,
		DueDay:     req.DueDay,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&card); result.Error != nil {
		log.Error("Failed to create credit card", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "credit card creation failed"})
	}

	return c.JSON(http.StatusCreated, card)
}

func DeleteCreditCard(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid card ID"})
	}

	var card model.CreditCard
	if result := database.GetDB().
		Where("id = ? AND user_id = ?", id, userID).
		First(&card); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "credit card not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Delete(&card).Error; err != nil {
		log.Error("Failed to delete credit card", zap.Uint64("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Credit card deleted"})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/printhaus/marketplace/internal/models"
)

type OrderHandler struct {
	DB *gorm.DB
}

// GetOrder lets a buyer track an order by the session id from their
// checkout redirect.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	sessionID := c.Param("sessionID")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session id is required")
	}

	var order models.Order
	if err := h.DB.Where("session_id = ?", sessionID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	var items []models.OrderItem
	if err := h.DB.Where("order_id = ?", order.ID).Order("id ASC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"order": order,
		"items": items,
	})
}

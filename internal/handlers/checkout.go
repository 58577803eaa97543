package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/printhaus/marketplace/internal/logging"
	"github.com/printhaus/marketplace/internal/models"
	"github.com/printhaus/marketplace/internal/payment"
	"github.com/printhaus/marketplace/internal/revenue"
)

const (
	minQuantityPerLine = 1
	maxQuantityPerLine = 10
)

type CheckoutHandler struct {
	DB         *gorm.DB
	Payments   *payment.Client
	Currency   string
	SuccessURL string
	CancelURL  string
}

type checkoutRequest struct {
	Items []struct {
		Slug     string `json:"slug"`
		Size     string `json:"selectedSize"`
		Quantity int64  `json:"quantity"`
	} `json:"items"`
	Email string `json:"email"`
}

// CreateSession prices the submitted cart server-side and asks the
// provider for a hosted checkout session. Client-submitted prices are
// never trusted; lines with unknown slugs, unpublished artworks or bad
// sizes are dropped rather than failing the request. Nothing is persisted
// here: the order exists only once the webhook confirms payment.
func (h *CheckoutHandler) CreateSession(c echo.Context) error {
	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, errors.New("invalid request body"))
	}
	if len(req.Items) == 0 {
		return errorResponse(c, http.StatusBadRequest, errors.New("cart is empty"))
	}

	var lines []payment.SessionLine
	for _, item := range req.Items {
		size, ok := revenue.ParseSize(item.Size)
		if !ok {
			continue
		}

		var artwork models.Artwork
		err := h.DB.Where("slug = ? AND published = ?", item.Slug, true).First(&artwork).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return errorResponse(c, http.StatusInternalServerError, errors.New("database error"))
		}

		qty := item.Quantity
		if qty < minQuantityPerLine {
			qty = minQuantityPerLine
		}
		if qty > maxQuantityPerLine {
			qty = maxQuantityPerLine
		}

		unit := revenue.BasePrice(size) + artwork.MarkupCents
		lines = append(lines, payment.SessionLine{
			Name:      fmt.Sprintf("%s (%s print)", artwork.Title, size),
			Ref:       fmt.Sprintf("%s|%s|%d", artwork.Slug, size, qty),
			UnitPrice: unit,
			Quantity:  qty,
		})
	}

	if len(lines) == 0 {
		return errorResponse(c, http.StatusBadRequest, errors.New("no valid items in cart"))
	}

	session, err := h.Payments.CreateSession(c.Request().Context(), payment.CreateSessionParams{
		Lines:         lines,
		CustomerEmail: req.Email,
		Currency:      h.Currency,
		SuccessURL:    h.SuccessURL,
		CancelURL:     h.CancelURL,
	})
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("checkout session creation failed", "error", err)
		return errorResponse(c, http.StatusBadGateway, errors.New("payment provider unavailable"))
	}

	return c.JSON(http.StatusOK, echo.Map{"url": session.URL})
}

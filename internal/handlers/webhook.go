package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/printhaus/marketplace/internal/logging"
	"github.com/printhaus/marketplace/internal/models"
	"github.com/printhaus/marketplace/internal/notify"
	"github.com/printhaus/marketplace/internal/payment"
	"github.com/printhaus/marketplace/internal/revenue"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	DB            *gorm.DB
	WebhookSecret []byte
	Events        notify.Dispatcher
}

// HandlePaymentEvent records a completed checkout as an Order plus its
// items. The handler is idempotent under provider redelivery: the order
// upserts on the unique session id and the item set is replaced wholesale,
// never appended. Signature failures are rejected before any database
// access; persistence failures after verification are logged and answered
// with 200 anyway, since the provider would otherwise retry forever.
func (h *WebhookHandler) HandlePaymentEvent(c echo.Context) error {
	log := logging.FromContext(c.Request().Context())

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, errors.New("unreadable body"))
	}

	sig := c.Request().Header.Get(payment.SignatureHeader)
	if err := payment.VerifySignature(body, sig, h.WebhookSecret, payment.DefaultTolerance); err != nil {
		log.Warn("webhook signature rejected", "error", err)
		return errorResponse(c, http.StatusBadRequest, errors.New("invalid signature"))
	}

	ev, err := payment.ParseEvent(body)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, errors.New("malformed event"))
	}

	if ev.Type != payment.EventCheckoutCompleted {
		log.Info("ignoring webhook event", "type", ev.Type)
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	session, err := ev.CheckoutSession()
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, errors.New("malformed checkout session"))
	}

	order, err := h.recordOrder(session)
	if err != nil {
		// Deliberate at-least-once: the event is acked even though the
		// write was lost, to stop the provider's retry loop.
		log.Error("webhook order persistence failed", "sessionID", session.ID, "error", err)
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	dispatch(c, h.Events, notify.TopicOrderEvents, session.ID, map[string]any{
		"type":      "order_paid",
		"orderID":   order.ID,
		"sessionID": session.ID,
		"email":     order.Email,
		"amount":    order.AmountTotal,
	})
	h.markReceiptSent(c, order)

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

func (h *WebhookHandler) recordOrder(session *payment.CheckoutSession) (*models.Order, error) {
	var order models.Order

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		order = models.Order{
			SessionID:       session.ID,
			Email:           session.CustomerEmail,
			AmountTotal:     session.AmountTotal,
			Currency:        session.Currency,
			PaymentStatus:   session.PaymentStatus,
			ShippingName:    session.Shipping.Name,
			ShippingAddress: session.Shipping.Address,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"email", "amount_total", "currency", "payment_status",
				"shipping_name", "shipping_address",
			}),
		}).Create(&order).Error
		if err != nil {
			return fmt.Errorf("upsert order: %w", err)
		}
		if err := tx.Where("session_id = ?", session.ID).First(&order).Error; err != nil {
			return fmt.Errorf("reload order: %w", err)
		}

		// Full replacement keeps redeliveries from appending duplicates.
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("clear order items: %w", err)
		}

		items := h.buildItems(tx, order.ID, session.Metadata)
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("insert order items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// buildItems rebuilds the cart from session metadata. Costs come from the
// static size table at write time so payout math never re-reads mutable
// artwork state. An artwork deleted between checkout and webhook still
// yields an item, with sentinel snapshots.
func (h *WebhookHandler) buildItems(tx *gorm.DB, orderID uint, metadata map[string]string) []models.OrderItem {
	var items []models.OrderItem
	for i := 0; ; i++ {
		ref, ok := metadata[fmt.Sprintf("line_%d", i)]
		if !ok {
			break
		}
		slug, size, qty, ok := parseLineRef(ref)
		if !ok {
			continue
		}

		item := models.OrderItem{
			OrderID:            orderID,
			Size:               string(size),
			Quantity:           qty,
			TitleSnapshot:      "Unknown artwork",
			ArtistNameSnapshot: "Unknown artist",
		}

		unit := revenue.BasePrice(size)
		var artwork models.Artwork
		if err := tx.Where("slug = ?", slug).First(&artwork).Error; err == nil {
			unit += artwork.MarkupCents
			item.ArtworkID = &artwork.ID
			item.TitleSnapshot = artwork.Title
			item.ImageURLSnapshot = artwork.ImageURL
			var artist models.Artist
			if err := tx.First(&artist, artwork.ArtistID).Error; err == nil {
				item.ArtistNameSnapshot = artist.Name
			}
		}

		item.UnitPrice = unit
		item.LineTotal = unit * qty

		b := revenue.SplitForSize(item.LineTotal, size, qty)
		item.PrintCost = b.PrintCost
		item.ShippingCost = b.ShippingCost
		item.LaborCost = b.LaborCost
		item.WebsiteCost = b.WebsiteCost

		items = append(items, item)
	}
	return items
}

func parseLineRef(ref string) (slug string, size revenue.Size, qty int64, ok bool) {
	parts := strings.Split(ref, "|")
	if len(parts) != 3 {
		return "", "", 0, false
	}
	size, sok := revenue.ParseSize(parts[1])
	if !sok {
		return "", "", 0, false
	}
	n, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || n < 1 {
		return "", "", 0, false
	}
	return parts[0], size, n, true
}

// markReceiptSent stamps the order after the receipt event goes out, first
// delivery only.
func (h *WebhookHandler) markReceiptSent(c echo.Context, order *models.Order) {
	if order.ReceiptSentAt != nil {
		return
	}
	now := time.Now().UTC()
	err := h.DB.Model(&models.Order{}).
		Where("id = ? AND receipt_sent_at IS NULL", order.ID).
		Update("receipt_sent_at", now).Error
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("mark receipt sent failed", "orderID", order.ID, "error", err)
	}
}

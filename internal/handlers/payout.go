package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	mwauth "github.com/printhaus/marketplace/internal/middleware/auth"
	"github.com/printhaus/marketplace/internal/models"
	"github.com/printhaus/marketplace/internal/payout"
)

type PayoutHandler struct {
	DB      *gorm.DB
	Payouts *payout.Service
}

// Summaries returns the per-artist settlement rows for one month,
// admin only. Optional artist_id narrows to a single artist.
func (h *PayoutHandler) Summaries(c echo.Context) error {
	month := c.QueryParam("month")

	var artistID *uint
	if raw := c.QueryParam("artist_id"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid artist_id")
		}
		id := uint(n)
		artistID = &id
	}

	rows, err := h.Payouts.Summarize(month, artistID)
	if err != nil {
		if errors.Is(err, payout.ErrBadMonth) {
			return echo.NewHTTPError(http.StatusBadRequest, "month must be YYYY-MM")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "aggregation failed")
	}
	return c.JSON(http.StatusOK, rows)
}

// ExportCSV renders the same aggregation as CSV with a trailing totals
// row. A month with no sales still produces the header and a zero totals
// row rather than an empty file.
func (h *PayoutHandler) ExportCSV(c echo.Context) error {
	month := c.QueryParam("month")

	rows, err := h.Payouts.Summarize(month, nil)
	if err != nil {
		if errors.Is(err, payout.ErrBadMonth) {
			return echo.NewHTTPError(http.StatusBadRequest, "month must be YYYY-MM")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "aggregation failed")
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="payouts-%s.csv"`, month))
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	header := []string{
		"artist_id", "artist_name", "month", "items",
		"gross", "expenses", "profit", "artist_share", "company_share",
		"paid", "paid_at",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	var totals payout.ArtistSummary
	for _, row := range rows {
		paidAt := ""
		if row.PaidAt != nil {
			paidAt = row.PaidAt.UTC().Format("2006-01-02")
		}
		record := []string{
			strconv.FormatUint(uint64(row.ArtistID), 10),
			row.ArtistName,
			row.Month,
			strconv.FormatInt(row.ItemCount, 10),
			centsToCSV(row.Gross),
			centsToCSV(row.Expenses),
			centsToCSV(row.Profit),
			centsToCSV(row.ArtistShare),
			centsToCSV(row.CompanyShare),
			strconv.FormatBool(row.Paid),
			paidAt,
		}
		if err := w.Write(record); err != nil {
			return err
		}
		totals.ItemCount += row.ItemCount
		totals.Gross += row.Gross
		totals.Expenses += row.Expenses
		totals.Profit += row.Profit
		totals.ArtistShare += row.ArtistShare
		totals.CompanyShare += row.CompanyShare
	}

	totalRow := []string{
		"", "TOTAL", month,
		strconv.FormatInt(totals.ItemCount, 10),
		centsToCSV(totals.Gross),
		centsToCSV(totals.Expenses),
		centsToCSV(totals.Profit),
		centsToCSV(totals.ArtistShare),
		centsToCSV(totals.CompanyShare),
		"", "",
	}
	if err := w.Write(totalRow); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

// MarkPaid toggles the ledger row for (artist, month). Marking stamps the
// paid timestamp; unmark clears it. The unique constraint keeps toggling
// from ever creating a second row.
func (h *PayoutHandler) MarkPaid(c echo.Context) error {
	var req struct {
		ArtistID uint   `json:"artistId"`
		Month    string `json:"month"`
		Unmark   bool   `json:"unmark"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ArtistID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "artistId is required")
	}

	row, err := h.Payouts.MarkPaid(req.ArtistID, req.Month, req.Unmark)
	if err != nil {
		if errors.Is(err, payout.ErrBadMonth) {
			return echo.NewHTTPError(http.StatusBadRequest, "month must be YYYY-MM")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "ledger update failed")
	}
	return c.JSON(http.StatusOK, row)
}

// MySummary is the artist's self-serve view of their own month.
func (h *PayoutHandler) MySummary(c echo.Context) error {
	userID, ok := mwauth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var artist models.Artist
	if err := h.DB.Where("user_id = ?", userID).First(&artist).Error; err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "no artist profile")
	}

	rows, err := h.Payouts.Summarize(c.QueryParam("month"), &artist.ID)
	if err != nil {
		if errors.Is(err, payout.ErrBadMonth) {
			return echo.NewHTTPError(http.StatusBadRequest, "month must be YYYY-MM")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "aggregation failed")
	}
	return c.JSON(http.StatusOK, rows)
}

// centsToCSV renders cents as a dollars string, e.g. 1399 -> "13.99".
func centsToCSV(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

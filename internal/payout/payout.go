// Package payout aggregates settled order items into monthly per-artist
// summaries and maintains the paid/unpaid ledger.
package payout

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/printhaus/marketplace/internal/models"
	"github.com/printhaus/marketplace/internal/revenue"
)

// UnknownArtistID buckets order items whose artwork reference was nulled
// out by a later artwork deletion. Totals survive the deletion; attribution
// falls back to the sale-time snapshot.
const UnknownArtistID uint = 0

var ErrBadMonth = errors.New("payout: month must be YYYY-MM")

// ArtistSummary is one aggregation row: an artist's settled economics for
// one calendar month, annotated from the payout ledger.
type ArtistSummary struct {
	ArtistID     uint       `json:"artist_id"`
	ArtistName   string     `json:"artist_name"`
	Month        string     `json:"month"`
	ItemCount    int64      `json:"item_count"`
	Gross        int64      `json:"gross"`
	Expenses     int64      `json:"expenses"`
	Profit       int64      `json:"profit"`
	ArtistShare  int64      `json:"artist_share"`
	CompanyShare int64      `json:"company_share"`
	Paid         bool       `json:"paid"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
}

type Service struct {
	DB *gorm.DB
}

// ParseMonth validates a YYYY-MM string and returns its UTC window.
func ParseMonth(month string) (start, end time.Time, err error) {
	t, perr := time.Parse("2006-01", month)
	if perr != nil {
		return time.Time{}, time.Time{}, ErrBadMonth
	}
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Summarize groups the month's paid order items by artist. artistID
// filters to one artist when non-nil. Rows come back sorted by artist name
// for stable presentation; the unknown bucket sorts with the rest under
// its snapshot-derived name.
func (s *Service) Summarize(month string, artistID *uint) ([]ArtistSummary, error) {
	start, end, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}

	var orderIDs []uint
	err = s.DB.Model(&models.Order{}).
		Where("payment_status = ? AND created_at >= ? AND created_at < ?", "paid", start, end).
		Pluck("id", &orderIDs).Error
	if err != nil {
		return nil, fmt.Errorf("payout: load orders: %w", err)
	}

	var items []models.OrderItem
	if len(orderIDs) > 0 {
		if err := s.DB.Where("order_id IN ?", orderIDs).Find(&items).Error; err != nil {
			return nil, fmt.Errorf("payout: load order items: %w", err)
		}
	}

	artistOf, nameOf, err := s.resolveArtists(items)
	if err != nil {
		return nil, err
	}

	byArtist := make(map[uint]*ArtistSummary)
	for _, item := range items {
		aid := UnknownArtistID
		if item.ArtworkID != nil {
			if id, ok := artistOf[*item.ArtworkID]; ok {
				aid = id
			}
		}
		if artistID != nil && aid != *artistID {
			continue
		}

		row, ok := byArtist[aid]
		if !ok {
			name := nameOf[aid]
			if name == "" {
				name = item.ArtistNameSnapshot
			}
			if name == "" {
				name = "Unknown artist"
			}
			row = &ArtistSummary{ArtistID: aid, ArtistName: name, Month: month}
			byArtist[aid] = row
		}

		b := revenue.Split(item.LineTotal, item.PrintCost, item.ShippingCost, item.LaborCost, item.WebsiteCost)
		row.ItemCount += item.Quantity
		row.Gross += item.LineTotal
		row.Expenses += b.Expenses
		row.Profit += b.Profit
		row.ArtistShare += b.ArtistShare
		row.CompanyShare += b.CompanyShare
	}

	summaries := make([]ArtistSummary, 0, len(byArtist))
	for _, row := range byArtist {
		summaries = append(summaries, *row)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].ArtistName == summaries[j].ArtistName {
			return summaries[i].ArtistID < summaries[j].ArtistID
		}
		return summaries[i].ArtistName < summaries[j].ArtistName
	})

	if err := s.annotateLedger(month, summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Service) resolveArtists(items []models.OrderItem) (artistOf map[uint]uint, nameOf map[uint]string, err error) {
	artworkIDs := make([]uint, 0, len(items))
	seen := make(map[uint]bool)
	for _, item := range items {
		if item.ArtworkID != nil && !seen[*item.ArtworkID] {
			seen[*item.ArtworkID] = true
			artworkIDs = append(artworkIDs, *item.ArtworkID)
		}
	}

	artistOf = make(map[uint]uint)
	nameOf = make(map[uint]string)
	if len(artworkIDs) == 0 {
		return artistOf, nameOf, nil
	}

	var artworks []models.Artwork
	if err := s.DB.Where("id IN ?", artworkIDs).Find(&artworks).Error; err != nil {
		return nil, nil, fmt.Errorf("payout: load artworks: %w", err)
	}
	artistIDs := make([]uint, 0, len(artworks))
	for _, aw := range artworks {
		artistOf[aw.ID] = aw.ArtistID
		artistIDs = append(artistIDs, aw.ArtistID)
	}

	if len(artistIDs) > 0 {
		var artists []models.Artist
		if err := s.DB.Where("id IN ?", artistIDs).Find(&artists).Error; err != nil {
			return nil, nil, fmt.Errorf("payout: load artists: %w", err)
		}
		for _, a := range artists {
			nameOf[a.ID] = a.Name
		}
	}
	return artistOf, nameOf, nil
}

func (s *Service) annotateLedger(month string, summaries []ArtistSummary) error {
	var payouts []models.Payout
	if err := s.DB.Where("month = ?", month).Find(&payouts).Error; err != nil {
		return fmt.Errorf("payout: load ledger: %w", err)
	}
	ledger := make(map[uint]models.Payout, len(payouts))
	for _, p := range payouts {
		ledger[p.ArtistID] = p
	}
	for i := range summaries {
		if p, ok := ledger[summaries[i].ArtistID]; ok && p.PaidAt != nil {
			summaries[i].Paid = true
			summaries[i].PaidAt = p.PaidAt
		}
	}
	return nil
}

// MarkPaid upserts the (artist, month) ledger row. Marking stamps PaidAt
// and records the artist share owed at that moment; unmarking keeps the
// row but clears the timestamp, so toggling never duplicates rows.
func (s *Service) MarkPaid(artistID uint, month string, unmark bool) (*models.Payout, error) {
	if _, _, err := ParseMonth(month); err != nil {
		return nil, err
	}

	var amount int64
	if unmark {
		// Keep whatever amount the row already recorded.
		var existing models.Payout
		if err := s.DB.Where("artist_id = ? AND month = ?", artistID, month).First(&existing).Error; err == nil {
			amount = existing.AmountCents
		}
	} else {
		rows, err := s.Summarize(month, &artistID)
		if err != nil {
			return nil, err
		}
		if len(rows) == 1 {
			amount = rows[0].ArtistShare
		}
	}

	var paidAt *time.Time
	if !unmark {
		now := time.Now().UTC()
		paidAt = &now
	}

	row := models.Payout{
		ArtistID:    artistID,
		Month:       month,
		AmountCents: amount,
		PaidAt:      paidAt,
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "artist_id"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount_cents", "paid_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("payout: upsert ledger: %w", err)
	}

	var saved models.Payout
	if err := s.DB.Where("artist_id = ? AND month = ?", artistID, month).First(&saved).Error; err != nil {
		return nil, fmt.Errorf("payout: reload ledger row: %w", err)
	}
	return &saved, nil
}

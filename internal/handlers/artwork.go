package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/printhaus/marketplace/internal/logging"
	mwauth "github.com/printhaus/marketplace/internal/middleware/auth"
	"github.com/printhaus/marketplace/internal/models"
	"github.com/printhaus/marketplace/internal/notify"
	"github.com/printhaus/marketplace/internal/revenue"
	"github.com/printhaus/marketplace/internal/search"
	"github.com/printhaus/marketplace/internal/util"
)

type ArtworkHandler struct {
	DB     *gorm.DB
	Events notify.Dispatcher
	Search *search.Service
}

// ListArtworks returns published artworks, paginated.
func (h *ArtworkHandler) ListArtworks(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Artwork{}).Where("published = ?", true).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	var items []models.Artwork
	err := h.DB.Where("published = ?", true).
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ArtworkHandler) GetArtwork(c echo.Context) error {
	var artwork models.Artwork
	err := h.DB.Where("slug = ? AND published = ?", c.Param("slug"), true).First(&artwork).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "artwork not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}
	return c.JSON(http.StatusOK, artwork)
}

type artworkRequest struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	MarkupCents int64  `json:"markup_cents"`
}

// CreateArtwork uploads a new listing for the calling artist. Listings
// start unpublished and wait for moderation.
func (h *ArtworkHandler) CreateArtwork(c echo.Context) error {
	artist, err := h.currentArtist(c)
	if err != nil {
		return err
	}

	var req artworkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Slug == "" || req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "slug and title are required")
	}
	if req.MarkupCents < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "markup must not be negative")
	}

	artwork := models.Artwork{
		ArtistID:    artist.ID,
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		MarkupCents: req.MarkupCents,
	}
	if err := h.DB.Create(&artwork).Error; err != nil {
		return echo.NewHTTPError(http.StatusConflict, "artwork slug already in use")
	}

	h.index(c, &artwork, artist.Name, artist.Slug)
	dispatch(c, h.Events, notify.TopicArtworkEvents, fmt.Sprint(artwork.ID), map[string]any{
		"type":      "artwork_uploaded",
		"artworkID": artwork.ID,
		"artistID":  artist.ID,
		"title":     artwork.Title,
	})

	return c.JSON(http.StatusCreated, artwork)
}

// UpdateArtwork edits a listing. Artists may only touch their own.
func (h *ArtworkHandler) UpdateArtwork(c echo.Context) error {
	artwork, artist, err := h.ownedArtwork(c)
	if err != nil {
		return err
	}

	var req artworkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.MarkupCents < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "markup must not be negative")
	}

	if req.Title != "" {
		artwork.Title = req.Title
	}
	if req.Description != "" {
		artwork.Description = req.Description
	}
	if req.ImageURL != "" {
		artwork.ImageURL = req.ImageURL
	}
	artwork.MarkupCents = req.MarkupCents

	if err := h.DB.Save(artwork).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	h.index(c, artwork, artist.Name, artist.Slug)
	dispatch(c, h.Events, notify.TopicArtworkEvents, fmt.Sprint(artwork.ID), map[string]any{
		"type":      "artwork_updated",
		"artworkID": artwork.ID,
		"artistID":  artwork.ArtistID,
	})

	return c.JSON(http.StatusOK, artwork)
}

// SetPublished is the moderation switch, admin only.
func (h *ArtworkHandler) SetPublished(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid artwork id")
	}
	var req struct {
		Published bool `json:"published"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var artwork models.Artwork
	if err := h.DB.First(&artwork, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "artwork not found")
	}
	artwork.Published = req.Published
	if err := h.DB.Save(&artwork).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	dispatch(c, h.Events, notify.TopicArtworkEvents, fmt.Sprint(artwork.ID), map[string]any{
		"type":      "artwork_moderated",
		"artworkID": artwork.ID,
		"published": artwork.Published,
	})

	return c.JSON(http.StatusOK, artwork)
}

// DeleteArtwork removes a listing. Sold order items keep their snapshots;
// their artwork reference goes NULL so history survives.
func (h *ArtworkHandler) DeleteArtwork(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid artwork id")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OrderItem{}).
			Where("artwork_id = ?", id).
			Update("artwork_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Artwork{}, id).Error
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	h.deindex(c, uint(id))
	dispatch(c, h.Events, notify.TopicArtworkEvents, fmt.Sprint(id), map[string]any{
		"type":      "artwork_deleted",
		"artworkID": id,
	})

	return c.NoContent(http.StatusNoContent)
}

// DeleteArtist cascades in one transaction: order items lose their artwork
// references, artworks and ledger rows go, then the artist row itself.
func (h *ArtworkHandler) DeleteArtist(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid artist id")
	}

	var artworkIDs []uint
	if err := h.DB.Model(&models.Artwork{}).Where("artist_id = ?", id).Pluck("id", &artworkIDs).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if len(artworkIDs) > 0 {
			if err := tx.Model(&models.OrderItem{}).
				Where("artwork_id IN ?", artworkIDs).
				Update("artwork_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Where("artist_id = ?", id).Delete(&models.Artwork{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("artist_id = ?", id).Delete(&models.Payout{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Artist{}, id).Error
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	for _, awID := range artworkIDs {
		h.deindex(c, awID)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *ArtworkHandler) currentArtist(c echo.Context) (*models.Artist, error) {
	userID, ok := mwauth.UserID(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var artist models.Artist
	if err := h.DB.Where("user_id = ?", userID).First(&artist).Error; err != nil {
		return nil, echo.NewHTTPError(http.StatusForbidden, "no artist profile")
	}
	return &artist, nil
}

func (h *ArtworkHandler) ownedArtwork(c echo.Context) (*models.Artwork, *models.Artist, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid artwork id")
	}

	var artwork models.Artwork
	if err := h.DB.First(&artwork, id).Error; err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusNotFound, "artwork not found")
	}

	role, _ := mwauth.Role(c)
	if role == "admin" {
		var artist models.Artist
		if err := h.DB.First(&artist, artwork.ArtistID).Error; err != nil {
			return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, "database error")
		}
		return &artwork, &artist, nil
	}

	artist, aerr := h.currentArtist(c)
	if aerr != nil {
		return nil, nil, aerr
	}
	if artwork.ArtistID != artist.ID {
		return nil, nil, echo.NewHTTPError(http.StatusForbidden, "not your artwork")
	}
	return &artwork, artist, nil
}

// index mirrors a listing into the search cluster, best-effort.
func (h *ArtworkHandler) index(c echo.Context, aw *models.Artwork, artistName, artistSlug string) {
	if h.Search == nil {
		return
	}
	doc := search.Doc{
		ID:         aw.ID,
		Slug:       aw.Slug,
		Title:      aw.Title,
		Artist:     artistName,
		Desc:       aw.Description,
		ImageURL:   aw.ImageURL,
		PriceFrom:  revenue.BasePrice(revenue.SizeSmall) + aw.MarkupCents,
		ArtistSlug: artistSlug,
	}
	if err := h.Search.IndexArtwork(c.Request().Context(), doc); err != nil {
		logging.FromContext(c.Request().Context()).Error("search index failed", "artworkID", aw.ID, "error", err)
	}
}

func (h *ArtworkHandler) deindex(c echo.Context, id uint) {
	if h.Search == nil {
		return
	}
	if err := h.Search.DeleteArtwork(c.Request().Context(), id); err != nil {
		logging.FromContext(c.Request().Context()).Error("search deindex failed", "artworkID", id, "error", err)
	}
}

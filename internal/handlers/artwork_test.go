package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/printhaus/marketplace/internal/models"
)

func asUser(c echo.Context, userID uint, role string) {
	c.Set("userID", userID)
	c.Set("role", role)
}

func TestListArtworksPublishedOnly(t *testing.T) {
	env := newTestEnv(t)
	h := &ArtworkHandler{DB: env.DB, Events: env.Events}

	artist := env.createArtist("Hiroshi Nagai", "hiroshi")
	env.createArtwork(artist, "pool-side", "Pool Side", 0)
	hidden := env.createArtwork(artist, "pending", "Pending", 0)
	hidden.Published = false
	require.NoError(t, env.DB.Save(hidden).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/artworks?page=1&size=10", nil)
	require.NoError(t, h.ListArtworks(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Artwork `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "pool-side", resp.Data[0].Slug)
	require.Equal(t, int64(1), resp.Meta.Total)
}

func TestGetArtworkBySlug(t *testing.T) {
	env := newTestEnv(t)
	h := &ArtworkHandler{DB: env.DB, Events: env.Events}

	artist := env.createArtist("Helen Frankenthaler", "helen")
	env.createArtwork(artist, "mountains-and-sea", "Mountains and Sea", 250)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/artworks/mountains-and-sea", nil)
	c.SetParamNames("slug")
	c.SetParamValues("mountains-and-sea")
	require.NoError(t, h.GetArtwork(c))
	require.Equal(t, http.StatusOK, rec.Code)

	_, c = env.doJSONRequest(http.MethodGet, "/api/v1/artworks/nope", nil)
	c.SetParamNames("slug")
	c.SetParamValues("nope")
	requireHTTPError(t, h.GetArtwork(c), http.StatusNotFound)
}

func TestCreateArtworkStartsUnpublished(t *testing.T) {
	env := newTestEnv(t)
	h := &ArtworkHandler{DB: env.DB, Events: env.Events}

	artist := env.createArtist("Kay Sage", "kay")

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/artist/artworks", map[string]any{
		"slug":         "tomorrow-is-never",
		"title":        "Tomorrow Is Never",
		"markup_cents": 750,
	})
	asUser(c, artist.UserID, "artist")
	require.NoError(t, h.CreateArtwork(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Artwork
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.False(t, created.Published, "new uploads wait for moderation")
	require.Equal(t, artist.ID, created.ArtistID)

	require.Len(t, env.Events.byType("artwork_uploaded"), 1)
}

func TestCreateArtworkWithoutProfileIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	h := &ArtworkHandler{DB: env.DB, Events: env.Events}

	user := env.createUser("noprofile@example.com", "artist")
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/artist/artworks", map[string]any{
		"slug":  "x",
		"title": "X",
	})
	asUser(c, user.ID, "artist")
	requireHTTPError(t, h.CreateArtwork(c), http.StatusForbidden)
}

func TestUpdateArtworkOwnership(t *testing.T) {
	env := newTestEnv(t)
	h := &ArtworkHandler{DB: env.DB, Events: env.Events}

	owner := env.createArtist("Leonora Carrington", "leonora")
	intruder := env.createArtist("Max Ernst", "max")
	aw := env.createArtwork(owner, "the-giantess", "The Giantess", 0)

	// Another artist cannot edit it.
	_, c := env.doJSONRequest(http.MethodPatch, fmt.Sprintf("/api/v1/artist/artworks/%d", aw.ID), map[string]any{
		"title": "Stolen",
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(aw.ID))
	asUser(c, intruder.UserID, "artist")
	requireHTTPError(t, h.UpdateArtwork(c), http.StatusForbidden)

	// The owner can.
	rec, c := env.doJSONRequest(http.MethodPatch, fmt.Sprintf("/api/v1/artist/artworks/%d", aw.ID), map[string]any{
		"title":        "The Giantess (second state)",
		"markup_cents": 300,
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(aw.ID))
	asUser(c, owner.UserID, "artist")
	require.NoError(t, h.UpdateArtwork(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Artwork
	require.NoError(t, env.DB.First(&updated, aw.ID).Error)
	require.Equal(t, "The Giantess (second state)", updated.Title)
	require.Equal(t, int64(300), updated.MarkupCents)
}

func TestSetPublished(t *testing.T) {
	env := newTestEnv(t)
	h := &ArtworkHandler{DB: env.DB, Events: env.Events}

	artist := env.createArtist("Remedios Varo", "remedios")
	aw := env.createArtwork(artist, "creation", "Creation of the Birds", 0)
	aw.Published = false
	require.NoError(t, env.DB.Save(aw).Error)

	rec, c := env.doJSONRequest(http.MethodPost, fmt.Sprintf("/api/v1/admin/artworks/%d/publish", aw.ID), map[string]any{
		"published": true,
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(aw.ID))
	require.NoError(t, h.SetPublished(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var saved models.Artwork
	require.NoError(t, env.DB.First(&saved, aw.ID).Error)
	require.True(t, saved.Published)
}

func TestDeleteArtworkPreservesOrderHistory(t *testing.T) {
	env := newTestEnv(t)
	h := &ArtworkHandler{DB: env.DB, Events: env.Events}

	artist := env.createArtist("Georgia O'Keeffe", "georgia")
	aw := env.createArtwork(artist, "ram-skull", "Ram's Skull", 0)
	seedPaidItem(env, "cs_history", august(7), &aw.ID, artist.Name, 4499, 1)

	rec, c := env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/v1/admin/artworks/%d", aw.ID), nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(aw.ID))
	require.NoError(t, h.DeleteArtwork(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var item models.OrderItem
	require.NoError(t, env.DB.First(&item).Error)
	require.Nil(t, item.ArtworkID)
	require.Equal(t, artist.Name, item.ArtistNameSnapshot)

	// The aggregation still sees the sale, in the unknown bucket.
	rows, err := env.payoutService().Summarize("2026-08", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(4499), rows[0].Gross)
	require.Equal(t, artist.Name, rows[0].ArtistName)
}

func TestDeleteArtistCascades(t *testing.T) {
	env := newTestEnv(t)
	h := &ArtworkHandler{DB: env.DB, Events: env.Events}

	artist := env.createArtist("On Kawara", "on-kawara")
	aw1 := env.createArtwork(artist, "date-1", "Jan. 4, 1966", 0)
	aw2 := env.createArtwork(artist, "date-2", "Feb. 9, 1971", 0)
	seedPaidItem(env, "cs_cascade", august(8), &aw1.ID, artist.Name, 4499, 1)
	_, err := env.payoutService().MarkPaid(artist.ID, "2026-08", false)
	require.NoError(t, err)

	rec, c := env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/v1/admin/artists/%d", artist.ID), nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(artist.ID))
	require.NoError(t, h.DeleteArtist(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var artistCount, artworkCount, payoutCount int64
	env.DB.Model(&models.Artist{}).Where("id = ?", artist.ID).Count(&artistCount)
	env.DB.Model(&models.Artwork{}).Where("id IN ?", []uint{aw1.ID, aw2.ID}).Count(&artworkCount)
	env.DB.Model(&models.Payout{}).Where("artist_id = ?", artist.ID).Count(&payoutCount)
	require.Zero(t, artistCount)
	require.Zero(t, artworkCount)
	require.Zero(t, payoutCount)

	// Order history survives the cascade.
	var item models.OrderItem
	require.NoError(t, env.DB.First(&item).Error)
	require.Nil(t, item.ArtworkID)
}

package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/printhaus/marketplace/internal/handlers"
	mwauth "github.com/printhaus/marketplace/internal/middleware/auth"
	"github.com/printhaus/marketplace/internal/middleware/ratelimit"
)

type Deps struct {
	Auth     *mwauth.Middleware
	Limiter  *ratelimit.Limiter
	Accounts *handlers.AuthHandler
	Artworks *handlers.ArtworkHandler
	Checkout *handlers.CheckoutHandler
	Webhooks *handlers.WebhookHandler
	Payouts  *handlers.PayoutHandler
	Orders   *handlers.OrderHandler
	Search   *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	limited := d.Limiter.Middleware

	v1.POST("/register", d.Accounts.Register, limited)
	v1.POST("/login", d.Accounts.Login, limited)
	v1.POST("/logout", d.Accounts.Logout)

	v1.GET("/artworks", d.Artworks.ListArtworks)
	v1.GET("/artworks/:slug", d.Artworks.GetArtwork)
	if d.Search != nil {
		v1.GET("/search", d.Search.Search)
	}

	v1.POST("/checkout", d.Checkout.CreateSession, limited)
	v1.POST("/webhooks/payment", d.Webhooks.HandlePaymentEvent)
	v1.GET("/orders/:sessionID", d.Orders.GetOrder)

	artist := v1.Group("/artist", d.Auth.RequireRole("artist"))
	artist.POST("/artworks", d.Artworks.CreateArtwork)
	artist.PATCH("/artworks/:id", d.Artworks.UpdateArtwork)
	artist.GET("/payouts", d.Payouts.MySummary)

	admin := v1.Group("/admin", d.Auth.RequireAdmin)
	admin.POST("/artworks/:id/publish", d.Artworks.SetPublished)
	admin.DELETE("/artworks/:id", d.Artworks.DeleteArtwork)
	admin.DELETE("/artists/:id", d.Artworks.DeleteArtist)
	admin.GET("/payouts", d.Payouts.Summaries)
	admin.GET("/payouts/export", d.Payouts.ExportCSV)
	admin.POST("/payouts/mark", d.Payouts.MarkPaid)
}

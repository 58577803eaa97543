package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/printhaus/marketplace/internal/config"
	"github.com/printhaus/marketplace/internal/handlers"
	"github.com/printhaus/marketplace/internal/logging"
	mwauth "github.com/printhaus/marketplace/internal/middleware/auth"
	"github.com/printhaus/marketplace/internal/middleware/ratelimit"
	"github.com/printhaus/marketplace/internal/notify"
	"github.com/printhaus/marketplace/internal/payment"
	"github.com/printhaus/marketplace/internal/payout"
	"github.com/printhaus/marketplace/internal/search"
	"github.com/printhaus/marketplace/internal/token"
	httpserver "github.com/printhaus/marketplace/internal/transport/http"
	"github.com/printhaus/marketplace/pkg/db"
	loggingmw "github.com/printhaus/marketplace/pkg/middleware/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	gdb, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	var producer *notify.Producer
	var dispatcher notify.Dispatcher
	if cfg.KafkaAddress != "" {
		producer = notify.NewProducer(cfg.KafkaAddress)
		dispatcher = producer
		defer producer.Close()
	} else {
		logger.Warn("KAFKA_ADDRESS not set, notification events disabled")
	}

	var searchSvc *search.Service
	if cfg.ESURL != "" {
		es, err := search.NewClient(search.ClientConfig{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
		})
		if err != nil {
			logger.Error("elasticsearch unavailable, search disabled", "error", err)
		} else {
			searchSvc = &search.Service{ES: es, Index: cfg.ESIndex}
		}
	}

	tokens := &token.Service{
		DB:            gdb,
		JWTSecret:     []byte(cfg.JWTSecret),
		RefreshSecret: []byte(cfg.RefreshSecret),
	}
	payments := payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentSecretKey)
	payouts := &payout.Service{DB: gdb}

	deps := &httpserver.Deps{
		Auth:    &mwauth.Middleware{Tokens: tokens},
		Limiter: ratelimit.New(cfg.RateLimitWindow, cfg.RateLimitRequests),
		Accounts: &handlers.AuthHandler{
			DB:     gdb,
			Tokens: tokens,
			Events: dispatcher,
		},
		Artworks: &handlers.ArtworkHandler{
			DB:     gdb,
			Events: dispatcher,
			Search: searchSvc,
		},
		Checkout: &handlers.CheckoutHandler{
			DB:         gdb,
			Payments:   payments,
			Currency:   "usd",
			SuccessURL: cfg.CheckoutSuccessURL,
			CancelURL:  cfg.CheckoutCancelURL,
		},
		Webhooks: &handlers.WebhookHandler{
			DB:            gdb,
			WebhookSecret: []byte(cfg.PaymentWebhookSecret),
			Events:        dispatcher,
		},
		Payouts: &handlers.PayoutHandler{DB: gdb, Payouts: payouts},
		Orders:  &handlers.OrderHandler{DB: gdb},
	}
	if searchSvc != nil {
		deps.Search = &handlers.SearchHandler{Svc: searchSvc}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, deps)

	logger.Info("starting server", "port", cfg.Port)
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

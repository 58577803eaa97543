package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/printhaus/marketplace/internal/logging"
	"github.com/printhaus/marketplace/internal/notify"
)

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func errorResponse(c echo.Context, code int, err error) error {
	return c.JSON(code, Response{
		Status:  "error",
		Message: err.Error(),
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// dispatch publishes an event best-effort: failures are logged and
// swallowed, the request that produced the event never fails over them.
func dispatch(c echo.Context, d notify.Dispatcher, topic, key string, event map[string]any) {
	if d == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := d.Dispatch(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("event dispatch failed",
			"topic", topic, "key", key, "error", err)
	}
}

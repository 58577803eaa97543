// Package ratelimit is a best-effort, single-instance limiter: a fixed
// window of requests per client IP, held in process memory. It resets on
// restart and does not coordinate across replicas.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type window struct {
	start time.Time
	count int
}

type Limiter struct {
	mu      sync.Mutex
	clients map[string]*window

	window  time.Duration
	ceiling int
	now     func() time.Time
}

func New(windowSize time.Duration, ceiling int) *Limiter {
	return &Limiter{
		clients: make(map[string]*window),
		window:  windowSize,
		ceiling: ceiling,
		now:     time.Now,
	}
}

// Allow records a hit for key and reports whether it stays under the
// ceiling for the current window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.prune(now)
		l.clients[key] = &window{start: now, count: 1}
		return true
	}
	w.count++
	return w.count <= l.ceiling
}

// prune drops expired windows. Called with the lock held, piggybacking on
// window rollover so there is no background goroutine.
func (l *Limiter) prune(now time.Time) {
	for k, w := range l.clients {
		if now.Sub(w.start) >= l.window {
			delete(l.clients, k)
		}
	}
}

// Middleware rejects over-limit clients with 429, keyed by real IP.
func (l *Limiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !l.Allow(c.RealIP()) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
		return next(c)
	}
}

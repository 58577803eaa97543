package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestAllowWithinCeiling(t *testing.T) {
	l := New(time.Minute, 3)

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("1.2.3.4"), "request %d", i+1)
	}
	require.False(t, l.Allow("1.2.3.4"))

	// Other clients are unaffected.
	require.True(t, l.Allow("5.6.7.8"))
}

func TestWindowResets(t *testing.T) {
	l := New(time.Minute, 1)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("1.2.3.4"))
	require.False(t, l.Allow("1.2.3.4"))

	now = now.Add(time.Minute)
	require.True(t, l.Allow("1.2.3.4"))
}

func TestPruneDropsStaleWindows(t *testing.T) {
	l := New(time.Minute, 1)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	require.Len(t, l.clients, 2)

	now = now.Add(2 * time.Minute)
	l.Allow("c")
	require.Len(t, l.clients, 1)
}

func TestMiddlewareReturns429(t *testing.T) {
	l := New(time.Minute, 1)
	e := echo.New()
	h := l.Middleware(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	do := func() (int, error) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		req.Header.Set("X-Real-IP", "9.9.9.9")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		err := h(c)
		return rec.Code, err
	}

	code, err := do()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)

	_, err = do()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusTooManyRequests, he.Code)
}

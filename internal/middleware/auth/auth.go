package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/printhaus/marketplace/internal/token"
)

const (
	ContextUserID = "userID"
	ContextRole   = "role"
)

// Middleware gates routes on the cookie token pair. An expired access
// token is transparently refreshed from the refresh cookie; missing or
// invalid credentials are 401, a valid login with the wrong role is 403.
type Middleware struct {
	Tokens *token.Service
}

// RequireLogin authenticates the request and stores claims on the context.
func (m *Middleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := m.authenticate(c)
		if err != nil {
			return err
		}
		setClaims(c, claims)
		return next(c)
	}
}

// RequireRole authenticates and then checks the role claim. Admin passes
// every role gate.
func (m *Middleware) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := m.authenticate(c)
			if err != nil {
				return err
			}
			if claims.Role != role && claims.Role != "admin" {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			setClaims(c, claims)
			return next(c)
		}
	}
}

func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.RequireRole("admin")(next)
}

func (m *Middleware) authenticate(c echo.Context) (*token.Claims, error) {
	if ck, err := c.Cookie(token.AccessCookie); err == nil {
		claims, err := m.Tokens.ValidateAccess(ck.Value)
		if err == nil {
			return claims, nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
	}

	rc, err := c.Cookie(token.RefreshCookie)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	access, refresh, claims, err := m.Tokens.Rotate(rc.Value)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	c.SetCookie(token.CreateCookie(token.AccessCookie, access, "/", time.Now().Add(token.AccessTTL)))
	c.SetCookie(token.CreateCookie(token.RefreshCookie, refresh, "/", time.Now().Add(token.RefreshTTL)))
	return claims, nil
}

func setClaims(c echo.Context, claims *token.Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextRole, claims.Role)
}

// UserID reads the authenticated user id placed by the middleware.
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(ContextUserID).(uint)
	return id, ok
}

// Role reads the authenticated role placed by the middleware.
func Role(c echo.Context) (string, bool) {
	r, ok := c.Get(ContextRole).(string)
	return r, ok
}

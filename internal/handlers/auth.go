package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/printhaus/marketplace/internal/hash"
	"github.com/printhaus/marketplace/internal/models"
	"github.com/printhaus/marketplace/internal/notify"
	"github.com/printhaus/marketplace/internal/token"
)

type AuthHandler struct {
	DB     *gorm.DB
	Tokens *token.Service
	Events notify.Dispatcher
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Artist   *struct {
		Name  string `json:"name"`
		Slug  string `json:"slug"`
		Email string `json:"email"`
		Bio   string `json:"bio"`
	} `json:"artist,omitempty"`
}

// Register creates a buyer account, or an artist account plus its public
// artist profile when the artist block is present.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	if req.Artist != nil && (req.Artist.Name == "" || req.Artist.Slug == "") {
		return echo.NewHTTPError(http.StatusBadRequest, "artist name and slug are required")
	}

	var existing models.User
	err := h.DB.Where("username = ?", req.Username).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "user already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "hash password")
	}

	role := "user"
	if req.Artist != nil {
		role = "artist"
	}
	user := models.User{
		Username:     req.Username,
		PasswordHash: pwHash,
		Role:         role,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if req.Artist != nil {
			artist := models.Artist{
				UserID: user.ID,
				Name:   req.Artist.Name,
				Slug:   req.Artist.Slug,
				Email:  req.Artist.Email,
				Bio:    req.Artist.Bio,
			}
			if err := tx.Create(&artist).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "create account")
	}

	dispatch(c, h.Events, notify.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
		"role":     user.Role,
	})

	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	access, refresh, err := h.Tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "issue tokens")
	}

	c.SetCookie(token.CreateCookie(token.AccessCookie, access, "/", time.Now().Add(token.AccessTTL)))
	c.SetCookie(token.CreateCookie(token.RefreshCookie, refresh, "/", time.Now().Add(token.RefreshTTL)))

	dispatch(c, h.Events, notify.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"role":          user.Role,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if ck, err := c.Cookie(token.RefreshCookie); err == nil {
		if err := h.Tokens.Revoke(ck.Value); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "revoke token")
		}
	}

	expired := time.Now().Add(-time.Hour)
	c.SetCookie(token.CreateCookie(token.AccessCookie, "", "/", expired))
	c.SetCookie(token.CreateCookie(token.RefreshCookie, "", "/", expired))

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

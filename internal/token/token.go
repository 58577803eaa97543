package token

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/printhaus/marketplace/internal/models"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour

	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

var (
	ErrInvalidToken = errors.New("token: invalid")
	ErrRevoked      = errors.New("token: refresh token revoked")
)

// Service issues and validates the cookie-carried token pair: a stateless
// access JWT and a DB-backed refresh token.
type Service struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
}

// Claims are what the middleware puts on the request context.
type Claims struct {
	UserID uint
	Role   string
}

func (s *Service) SignAccess(userID uint, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  float64(userID),
		"role": role,
		"exp":  time.Now().Add(AccessTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.JWTSecret)
}

func (s *Service) signRefresh(userID uint, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  float64(userID),
		"role": role,
		"exp":  time.Now().Add(RefreshTTL).Unix(),
		"typ":  "refresh",
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.RefreshSecret)
}

// IssuePair signs an access/refresh pair and persists the refresh token.
func (s *Service) IssuePair(userID uint, role string) (access, refresh string, err error) {
	access, err = s.SignAccess(userID, role)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.signRefresh(userID, role)
	if err != nil {
		return "", "", err
	}
	rec := models.RefreshToken{
		Token:     refresh,
		UserID:    userID,
		ExpiresAt: time.Now().Add(RefreshTTL).Unix(),
	}
	if err := s.DB.Create(&rec).Error; err != nil {
		return "", "", fmt.Errorf("save refresh token: %w", err)
	}
	return access, refresh, nil
}

// ValidateAccess parses and verifies an access JWT.
func (s *Service) ValidateAccess(raw string) (*Claims, error) {
	t, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.JWTSecret, nil
	})
	if err != nil {
		return nil, err
	}
	return claimsFrom(t)
}

// Rotate validates a refresh token against the store and issues a fresh
// pair. The old token is revoked so it cannot be replayed.
func (s *Service) Rotate(rawRefresh string) (access, refresh string, claims *Claims, err error) {
	t, err := jwt.Parse(rawRefresh, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.RefreshSecret, nil
	})
	if err != nil || !t.Valid {
		return "", "", nil, ErrInvalidToken
	}
	mc, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", nil, ErrInvalidToken
	}
	if typ, _ := mc["typ"].(string); typ != "refresh" {
		return "", "", nil, ErrInvalidToken
	}

	var stored models.RefreshToken
	if err := s.DB.Where("token = ?", rawRefresh).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", nil, ErrInvalidToken
		}
		return "", "", nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if stored.Revoked {
		return "", "", nil, ErrRevoked
	}
	if time.Now().Unix() > stored.ExpiresAt {
		return "", "", nil, ErrInvalidToken
	}

	claims, err = claimsFrom(t)
	if err != nil {
		return "", "", nil, err
	}

	if err := s.DB.Model(&models.RefreshToken{}).
		Where("token = ?", rawRefresh).
		Update("revoked", true).Error; err != nil {
		return "", "", nil, fmt.Errorf("revoke refresh token: %w", err)
	}

	access, refresh, err = s.IssuePair(claims.UserID, claims.Role)
	if err != nil {
		return "", "", nil, err
	}
	return access, refresh, claims, nil
}

// Revoke marks a refresh token unusable, for logout.
func (s *Service) Revoke(rawRefresh string) error {
	return s.DB.Model(&models.RefreshToken{}).
		Where("token = ?", rawRefresh).
		Update("revoked", true).Error
}

func claimsFrom(t *jwt.Token) (*Claims, error) {
	mc, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	sub, ok := mc["sub"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}
	role, ok := mc["role"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	return &Claims{UserID: uint(sub), Role: role}, nil
}

// CreateCookie builds the HttpOnly cookie both tokens ride in.
func CreateCookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

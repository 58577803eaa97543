package models

import (
	"time"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

type Artist struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint   `gorm:"index"                    json:"user_id"`
	Name   string `gorm:"not null"                 json:"name"`
	Slug   string `gorm:"unique;not null"          json:"slug"`
	Email  string `gorm:"not null"                 json:"email"`
	Bio    string `json:"bio"`
}

type Artwork struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ArtistID    uint   `gorm:"index;not null"           json:"artist_id"`
	Slug        string `gorm:"unique;not null"          json:"slug"`
	Title       string `gorm:"not null"                 json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	MarkupCents int64  `gorm:"not null;default:0"       json:"markup_cents"`
	Published   bool   `gorm:"default:false"            json:"published"`
}

// Order is created by the payment webhook. SessionID is the provider's
// checkout-session id and doubles as the idempotency key: redelivered
// events update the existing row instead of inserting a second one.
type Order struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID       string     `gorm:"uniqueIndex;not null"     json:"session_id"`
	Email           string     `json:"email"`
	AmountTotal     int64      `gorm:"not null"                 json:"amount_total"`
	Currency        string     `gorm:"not null"                 json:"currency"`
	PaymentStatus   string     `gorm:"not null"                 json:"payment_status"`
	ShippingName    string     `json:"shipping_name"`
	ShippingAddress string     `json:"shipping_address"`
	ReceiptSentAt   *time.Time `json:"receipt_sent_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderItem keeps title/artist/image snapshots taken at sale time, so the
// order history survives artwork edits and deletions. ArtworkID is nullable
// for the same reason. All money fields are integer cents.
type OrderItem struct {
	ID                 uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID            uint   `gorm:"index;not null"           json:"order_id"`
	ArtworkID          *uint  `gorm:"index"                    json:"artwork_id,omitempty"`
	Size               string `gorm:"not null"                 json:"size"`
	Quantity           int64  `gorm:"not null"                 json:"quantity"`
	UnitPrice          int64  `gorm:"not null"                 json:"unit_price"`
	LineTotal          int64  `gorm:"not null"                 json:"line_total"`
	TitleSnapshot      string `json:"title_snapshot"`
	ArtistNameSnapshot string `json:"artist_name_snapshot"`
	ImageURLSnapshot   string `json:"image_url_snapshot"`
	PrintCost          int64  `gorm:"not null"                 json:"print_cost"`
	ShippingCost       int64  `gorm:"not null"                 json:"shipping_cost"`
	LaborCost          int64  `gorm:"not null"                 json:"labor_cost"`
	WebsiteCost        int64  `gorm:"not null"                 json:"website_cost"`
}

// Payout is the monthly ledger row per artist. Absence of a row, or a row
// with a nil PaidAt, both mean "unpaid".
type Payout struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ArtistID    uint       `gorm:"not null;uniqueIndex:idx_payout_artist_month" json:"artist_id"`
	Month       string     `gorm:"not null;uniqueIndex:idx_payout_artist_month" json:"month"`
	AmountCents int64      `gorm:"not null;default:0"       json:"amount_cents"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

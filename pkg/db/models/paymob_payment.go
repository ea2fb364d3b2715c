package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafal-store/rafal-backend/pkg/enums"
)

// PaymobPayment is one card-gateway attempt for an order. PaymobOrderID is
// the gateway's own order registration id; the iframe URL embeds the
// single-use payment key handed to the shopper.
type PaymobPayment struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID                   `gorm:"column:order_id;type:uuid;not null;index"`
	PaymobOrderID int64                       `gorm:"column:paymob_order_id;not null;uniqueIndex"`
	AmountCents   int64                       `gorm:"column:amount_cents;not null"`
	Amount        decimal.Decimal             `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency      string                      `gorm:"column:currency;not null;default:'EGP'"`
	IframeURL     string                      `gorm:"column:iframe_url"`
	Status        enums.ProviderPaymentStatus `gorm:"column:status;not null;default:'awaiting'"`
	ExpiresAt     time.Time                   `gorm:"column:expires_at;not null"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

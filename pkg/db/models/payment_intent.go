package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafal-store/rafal-backend/pkg/enums"
)

// PaymentIntent is the single-use reconciliation token for a payment
// attempt. IsUsed moves false to true exactly once; the conditional update
// that flips it is what makes webhook and polling paths race-safe.
type PaymentIntent struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	Provider  enums.PaymentProvider `gorm:"column:provider;not null"`
	IntentID  string                `gorm:"column:intent_id;not null;uniqueIndex"`
	Amount    decimal.Decimal       `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency  string                `gorm:"column:currency;not null;default:'EGP'"`
	IsUsed    bool                  `gorm:"column:is_used;not null;default:false"`
	ExpiresAt time.Time             `gorm:"column:expires_at;not null"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

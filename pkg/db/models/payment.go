package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafal-store/rafal-backend/pkg/enums"
)

// Payment records money actually applied to an order. Exactly one row is
// created per consumed PaymentIntent.
type Payment struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	IntentID      *uuid.UUID            `gorm:"column:intent_id;type:uuid;uniqueIndex"`
	Provider      enums.PaymentProvider `gorm:"column:provider;not null"`
	Method        enums.PaymentMethod   `gorm:"column:method;not null"`
	Status        enums.PaymentStatus   `gorm:"column:status;not null"`
	Amount        decimal.Decimal       `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency      string                `gorm:"column:currency;not null;default:'EGP'"`
	TransactionID string                `gorm:"column:transaction_id"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
}

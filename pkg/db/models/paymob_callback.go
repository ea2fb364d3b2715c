package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymobCallback is the durable log of a gateway webhook delivery. The row
// is written before any matching is attempted, so a callback for an unknown
// transaction still leaves a record; PaymobPaymentID stays null in that case.
type PaymobCallback struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymobPaymentID *uuid.UUID     `gorm:"column:paymob_payment_id;type:uuid;index"`
	TransactionID   string         `gorm:"column:transaction_id"`
	PaymobOrderID   int64          `gorm:"column:paymob_order_id"`
	Success         bool           `gorm:"column:success;not null;default:false"`
	AmountCents     int64          `gorm:"column:amount_cents;not null;default:0"`
	Currency        string         `gorm:"column:currency"`
	HMACValid       bool           `gorm:"column:hmac_valid;not null;default:false"`
	Payload         map[string]any `gorm:"column:payload;type:jsonb;serializer:json"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
}

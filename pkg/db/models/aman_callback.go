package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmanCallback logs every Aman notification before matching. Unknown
// references leave AmanPaymentID null.
type AmanCallback struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AmanPaymentID   *uuid.UUID      `gorm:"column:aman_payment_id;type:uuid;index"`
	MerchantRef     string          `gorm:"column:merchant_ref"`
	ReferenceNumber string          `gorm:"column:reference_number"`
	OrderStatus     string          `gorm:"column:order_status"`
	PaymentAmount   decimal.Decimal `gorm:"column:payment_amount;type:numeric(10,2);not null;default:0"`
	SignatureValid  bool            `gorm:"column:signature_valid;not null;default:false"`
	Payload         map[string]any  `gorm:"column:payload;type:jsonb;serializer:json"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

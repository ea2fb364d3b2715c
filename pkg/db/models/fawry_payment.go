package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafal-store/rafal-backend/pkg/enums"
)

// FawryPayment is one pay-at-Fawry attempt. MerchantRef is our side of the
// correlation ("RAFAL-" + order number); ReferenceNumber is the code the
// shopper reads out at the kiosk.
type FawryPayment struct {
	ID              uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID                   `gorm:"column:order_id;type:uuid;not null;index"`
	MerchantRef     string                      `gorm:"column:merchant_ref;not null;uniqueIndex"`
	ReferenceNumber string                      `gorm:"column:reference_number;not null;uniqueIndex"`
	Amount          decimal.Decimal             `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency        string                      `gorm:"column:currency;not null;default:'EGP'"`
	Status          enums.ProviderPaymentStatus `gorm:"column:status;not null;default:'awaiting'"`
	ExpiresAt       time.Time                   `gorm:"column:expires_at;not null"`
	CreatedAt       time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

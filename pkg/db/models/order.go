package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafal-store/rafal-backend/pkg/enums"
)

// Order is the immutable purchase record cut from a cart at checkout.
// Monetary fields and item snapshots are fixed at creation; only Status
// (and the advisory PaymentID pointer) move afterwards.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex"`
	UserID      *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	Status      enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`

	FullName string `gorm:"column:full_name;not null"`
	Phone    string `gorm:"column:phone;not null"`
	Email    string `gorm:"column:email"`
	Address  string `gorm:"column:address;not null"`
	City     string `gorm:"column:city;not null"`
	Notes    string `gorm:"column:notes"`

	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(10,2);not null"`
	DeliveryFee decimal.Decimal `gorm:"column:delivery_fee;type:numeric(10,2);not null"`
	Total       decimal.Decimal `gorm:"column:total;type:numeric(10,2);not null"`

	// PaymentID points at the most recent payment attempt. It is advisory
	// only; reconciliation never reads it.
	PaymentID *uuid.UUID `gorm:"column:payment_id;type:uuid"`

	Items    []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Timeline []OrderTimeline `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

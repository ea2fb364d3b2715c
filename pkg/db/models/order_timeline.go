package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rafal-store/rafal-backend/pkg/enums"
)

// OrderTimeline is an append-only audit trail of order status changes.
// Rows are never updated or deleted while the order exists.
type OrderTimeline struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;not null"`
	Note      string            `gorm:"column:note"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product line in a cart. At most one row exists per
// (cart, product, color) combination; adding the same pair again bumps
// the quantity instead.
type CartItem struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID     `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_product_color"`
	ProductID uuid.UUID     `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_product_color"`
	ColorID   *uuid.UUID    `gorm:"column:color_id;type:uuid;uniqueIndex:idx_cart_items_cart_product_color"`
	Quantity  int           `gorm:"column:quantity;not null"`
	Product   *Product      `gorm:"foreignKey:ProductID"`
	Color     *ProductColor `gorm:"foreignKey:ColorID"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafal-store/rafal-backend/pkg/enums"
)

// ItemView is the frozen order line as sold.
type ItemView struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	ColorName   string          `json:"color_name,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// TimelineView is one audit-trail entry.
type TimelineView struct {
	Status    enums.OrderStatus `json:"status"`
	Note      string            `json:"note,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Summary exposes the aggregated fields returned in the orders list.
type Summary struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	Total       decimal.Decimal   `json:"total"`
	TotalItems  int               `json:"total_items"`
	CreatedAt   time.Time         `json:"created_at"`
}

// List wraps the paginated orders plus the next page cursor.
type List struct {
	Orders     []Summary `json:"orders"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// Detail is the full order read model.
type Detail struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	FullName    string            `json:"full_name"`
	Phone       string            `json:"phone"`
	Email       string            `json:"email,omitempty"`
	Address     string            `json:"address"`
	City        string            `json:"city"`
	Notes       string            `json:"notes,omitempty"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	DeliveryFee decimal.Decimal   `json:"delivery_fee"`
	Total       decimal.Decimal   `json:"total"`
	Items       []ItemView        `json:"items"`
	Timeline    []TimelineView    `json:"timeline"`
	CreatedAt   time.Time         `json:"created_at"`
}

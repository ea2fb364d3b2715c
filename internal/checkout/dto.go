package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafal-store/rafal-backend/internal/cart"
	"github.com/rafal-store/rafal-backend/pkg/enums"
)

// ShippingDetails are the snapshot contact fields copied onto the order.
type ShippingDetails struct {
	FullName string
	Phone    string
	Email    string
	Address  string
	City     string
	Notes    string
}

// CheckoutInput converts the owner's whole cart into an order.
type CheckoutInput struct {
	Owner    cart.Owner
	Shipping ShippingDetails
}

// DirectBuyInput orders a single product without touching the cart.
type DirectBuyInput struct {
	Owner     cart.Owner
	ProductID uuid.UUID
	ColorID   *uuid.UUID
	Quantity  int
	Shipping  ShippingDetails
}

// OrderView is the read model returned after checkout.
type OrderView struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	DeliveryFee decimal.Decimal   `json:"delivery_fee"`
	Total       decimal.Decimal   `json:"total"`
	CreatedAt   time.Time         `json:"created_at"`
}

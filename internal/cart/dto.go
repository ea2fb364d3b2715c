package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Owner identifies who a cart belongs to. Exactly one of UserID or
// SessionKey is set; an empty owner makes the service mint a session key.
type Owner struct {
	UserID     *uuid.UUID
	SessionKey string
}

// AddItemInput carries the fields needed to add a product line.
type AddItemInput struct {
	ProductID uuid.UUID
	ColorID   *uuid.UUID
	Quantity  int
}

// ItemView is the read model for one cart line.
type ItemView struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	ColorID   *uuid.UUID      `json:"color_id,omitempty"`
	ColorName string          `json:"color_name,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Summary is the read model for a whole cart. Totals are derived on read;
// nothing monetary is stored on the cart itself.
type Summary struct {
	CartID     uuid.UUID       `json:"cart_id"`
	SessionKey string          `json:"session_key,omitempty"`
	Items      []ItemView      `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

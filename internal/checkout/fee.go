package checkout

import "github.com/shopspring/decimal"

// FeePolicy is the flat delivery-fee rule: a fixed fee, waived once the
// subtotal reaches the free-delivery threshold.
type FeePolicy struct {
	Fee           decimal.Decimal
	FreeThreshold decimal.Decimal
}

// DeliveryFee returns the fee owed for the given subtotal. Pure; the same
// function backs cart previews and order creation so they cannot disagree.
func (p FeePolicy) DeliveryFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeThreshold) {
		return decimal.Zero
	}
	return p.Fee
}

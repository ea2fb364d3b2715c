package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDeliveryFeeBoundary(t *testing.T) {
	t.Parallel()

	policy := FeePolicy{
		Fee:           decimal.NewFromInt(50),
		FreeThreshold: decimal.NewFromInt(500),
	}

	cases := []struct {
		subtotal string
		want     string
	}{
		{"0", "50"},
		{"499.99", "50"},
		{"500", "0"},
		{"500.01", "0"},
		{"1200", "0"},
	}
	for _, tc := range cases {
		subtotal := decimal.RequireFromString(tc.subtotal)
		want := decimal.RequireFromString(tc.want)
		if got := policy.DeliveryFee(subtotal); !got.Equal(want) {
			t.Fatalf("subtotal %s: expected fee %s, got %s", tc.subtotal, want, got)
		}
	}
}

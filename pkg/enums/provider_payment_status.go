package enums

import "fmt"

// ProviderPaymentStatus tracks a provider-side payment attempt from creation
// until the gateway confirms, rejects, or the window lapses.
type ProviderPaymentStatus string

const (
	ProviderPaymentStatusAwaiting  ProviderPaymentStatus = "awaiting"
	ProviderPaymentStatusPaid      ProviderPaymentStatus = "paid"
	ProviderPaymentStatusFailed    ProviderPaymentStatus = "failed"
	ProviderPaymentStatusExpired   ProviderPaymentStatus = "expired"
	ProviderPaymentStatusAbandoned ProviderPaymentStatus = "abandoned"
)

var validProviderPaymentStatuses = []ProviderPaymentStatus{
	ProviderPaymentStatusAwaiting,
	ProviderPaymentStatusPaid,
	ProviderPaymentStatusFailed,
	ProviderPaymentStatusExpired,
	ProviderPaymentStatusAbandoned,
}

// String implements fmt.Stringer.
func (p ProviderPaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProviderPaymentStatus.
func (p ProviderPaymentStatus) IsValid() bool {
	for _, candidate := range validProviderPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProviderPaymentStatus converts raw input into a ProviderPaymentStatus.
func ParseProviderPaymentStatus(value string) (ProviderPaymentStatus, error) {
	for _, candidate := range validProviderPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid provider payment status %q", value)
}

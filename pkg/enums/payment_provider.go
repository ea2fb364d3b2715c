package enums

import "fmt"

// PaymentProvider identifies which external processor an intent belongs to.
type PaymentProvider string

const (
	PaymentProviderPaymob PaymentProvider = "paymob"
	PaymentProviderFawry  PaymentProvider = "fawry"
	PaymentProviderAman   PaymentProvider = "aman"
)

var validPaymentProviders = []PaymentProvider{
	PaymentProviderPaymob,
	PaymentProviderFawry,
	PaymentProviderAman,
}

// String implements fmt.Stringer.
func (p PaymentProvider) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentProvider.
func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentProvider converts raw input into a PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	for _, candidate := range validPaymentProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}

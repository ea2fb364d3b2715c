package providers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderInfo is the slice of an order a gateway needs to open a transaction.
type OrderInfo struct {
	OrderID      uuid.UUID
	OrderNumber  string
	Amount       decimal.Decimal
	Currency     string
	CustomerName string
	Phone        string
	Email        string
}

// Transaction is the provider-side handle created for a payment attempt.
// ProviderRef is the string that keys the payment intent; exactly one of
// PaymentURL (hosted page) or PaymentCode (pay-at-outlet code) is set.
type Transaction struct {
	ProviderRef string
	MerchantRef string
	PaymentURL  string
	PaymentCode string
	AmountCents int64
	ExpiresAt   time.Time
}

// Verification is the provider's answer when we poll for a transaction.
type Verification struct {
	Found         bool
	Success       bool
	TransactionID string
	Message       string
}

// Adapter is the uniform surface over the payment gateways. Implementations
// wrap transport and signing; callers never see provider HTTP details.
type Adapter interface {
	CreateTransaction(ctx context.Context, order OrderInfo) (*Transaction, error)
	VerifyTransaction(ctx context.Context, providerRef string) (*Verification, error)
}

package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafal-store/rafal-backend/pkg/enums"
)

// Initiation is what the client needs to complete a payment attempt: a
// hosted page URL for card payments or a reference code for cash networks.
type Initiation struct {
	OrderID     uuid.UUID             `json:"order_id"`
	OrderNumber string                `json:"order_number"`
	Provider    enums.PaymentProvider `json:"provider"`
	Amount      decimal.Decimal       `json:"amount"`
	Currency    string                `json:"currency"`
	PaymentURL  string                `json:"payment_url,omitempty"`
	PaymentCode string                `json:"payment_code,omitempty"`
	ExpiresAt   time.Time             `json:"expires_at"`
}

// Status reports where an attempt stands after a verification poll.
type Status struct {
	OrderID       uuid.UUID                   `json:"order_id"`
	OrderStatus   enums.OrderStatus           `json:"order_status"`
	Provider      enums.PaymentProvider       `json:"provider"`
	AttemptStatus enums.ProviderPaymentStatus `json:"attempt_status"`
	Paid          bool                        `json:"paid"`
	TransactionID string                      `json:"transaction_id,omitempty"`
	Message       string                      `json:"message,omitempty"`
}

// ReconcileInput carries a provider's verdict into reconciliation.
// Reference is the provider-side reference the intent was keyed on.
type ReconcileInput struct {
	Provider      enums.PaymentProvider
	Reference     string
	Success       bool
	TransactionID string
	Message       string
}

// ReconcileOutcome classifies what a reconciliation call did.
type ReconcileOutcome string

const (
	// OutcomeApplied means this call consumed the intent and applied the
	// payment to the order.
	OutcomeApplied ReconcileOutcome = "applied"
	// OutcomeAlreadyProcessed means the intent was consumed earlier; this
	// call changed nothing.
	OutcomeAlreadyProcessed ReconcileOutcome = "already_processed"
	// OutcomeDenied means the provider reported failure; the attempt is
	// marked failed and the order is untouched.
	OutcomeDenied ReconcileOutcome = "denied"
	// OutcomeUnknownReference means no intent matches the reference.
	OutcomeUnknownReference ReconcileOutcome = "unknown_reference"
)

// ReconcileResult is the recorded effect of one reconciliation call.
type ReconcileResult struct {
	Outcome   ReconcileOutcome
	OrderID   uuid.UUID
	PaymentID uuid.UUID
}

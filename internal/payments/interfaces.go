package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/pkg/db/models"
	"github.com/rafal-store/rafal-backend/pkg/enums"
)

// Repository defines persistence operations for payment attempts, intents,
// and the order-side effects of reconciliation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	MarkOrderProcessing(ctx context.Context, orderID uuid.UUID) (bool, error)
	SetOrderPaymentRef(ctx context.Context, orderID, paymentID uuid.UUID) error
	CreateTimelineEntry(ctx context.Context, entry *models.OrderTimeline) error

	CreateIntent(ctx context.Context, intent *models.PaymentIntent) error
	FindIntentByReference(ctx context.Context, reference string) (*models.PaymentIntent, error)
	ConsumeIntent(ctx context.Context, intentID uuid.UUID) (bool, error)
	ListExpiredIntents(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentIntent, error)

	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)

	CreatePaymobPayment(ctx context.Context, row *models.PaymobPayment) error
	FindPaymobByProviderOrder(ctx context.Context, paymobOrderID int64) (*models.PaymobPayment, error)
	FindPaymobByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymobPayment, error)

	CreateFawryPayment(ctx context.Context, row *models.FawryPayment) error
	SaveFawryPayment(ctx context.Context, row *models.FawryPayment) error
	FindFawryByOrder(ctx context.Context, orderID uuid.UUID) (*models.FawryPayment, error)
	FindFawryByMerchantRef(ctx context.Context, merchantRef string) (*models.FawryPayment, error)

	CreateAmanPayment(ctx context.Context, row *models.AmanPayment) error
	SaveAmanPayment(ctx context.Context, row *models.AmanPayment) error
	FindAmanByOrder(ctx context.Context, orderID uuid.UUID) (*models.AmanPayment, error)
	FindAmanByMerchantRef(ctx context.Context, merchantRef string) (*models.AmanPayment, error)

	UpdateAttemptStatus(ctx context.Context, provider enums.PaymentProvider, reference string, status enums.ProviderPaymentStatus) error
}

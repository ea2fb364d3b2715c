package payments

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/pkg/db/models"
	"github.com/rafal-store/rafal-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkOrderProcessing advances a pending order to processing. The status
// guard in the WHERE clause makes the transition idempotent under races.
func (r *repository) MarkOrderProcessing(ctx context.Context, orderID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Update("status", enums.OrderStatusProcessing)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) SetOrderPaymentRef(ctx context.Context, orderID, paymentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_id", paymentID).Error
}

func (r *repository) CreateTimelineEntry(ctx context.Context, entry *models.OrderTimeline) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *repository) FindIntentByReference(ctx context.Context, reference string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("intent_id = ?", reference).
		First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// ConsumeIntent flips is_used from false to true. The conditional UPDATE is
// the single serialization point for reconciliation: exactly one caller per
// intent observes true.
func (r *repository) ConsumeIntent(ctx context.Context, intentID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ? AND is_used = ?", intentID, false).
		Update("is_used", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListExpiredIntents(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentIntent, error) {
	var intents []models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("is_used = ? AND expires_at < ?", false, cutoff).
		Order("expires_at ASC").
		Limit(limit).
		Find(&intents).Error
	if err != nil {
		return nil, err
	}
	return intents, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) CreatePaymobPayment(ctx context.Context, row *models.PaymobPayment) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindPaymobByProviderOrder(ctx context.Context, paymobOrderID int64) (*models.PaymobPayment, error) {
	var row models.PaymobPayment
	err := r.db.WithContext(ctx).
		Where("paymob_order_id = ?", paymobOrderID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindPaymobByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymobPayment, error) {
	var row models.PaymobPayment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) CreateFawryPayment(ctx context.Context, row *models.FawryPayment) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) SaveFawryPayment(ctx context.Context, row *models.FawryPayment) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *repository) FindFawryByOrder(ctx context.Context, orderID uuid.UUID) (*models.FawryPayment, error) {
	var row models.FawryPayment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindFawryByMerchantRef(ctx context.Context, merchantRef string) (*models.FawryPayment, error) {
	var row models.FawryPayment
	err := r.db.WithContext(ctx).
		Where("merchant_ref = ?", merchantRef).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) CreateAmanPayment(ctx context.Context, row *models.AmanPayment) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) SaveAmanPayment(ctx context.Context, row *models.AmanPayment) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *repository) FindAmanByOrder(ctx context.Context, orderID uuid.UUID) (*models.AmanPayment, error) {
	var row models.AmanPayment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindAmanByMerchantRef(ctx context.Context, merchantRef string) (*models.AmanPayment, error) {
	var row models.AmanPayment
	err := r.db.WithContext(ctx).
		Where("merchant_ref = ?", merchantRef).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateAttemptStatus(ctx context.Context, provider enums.PaymentProvider, reference string, status enums.ProviderPaymentStatus) error {
	db := r.db.WithContext(ctx)
	switch provider {
	case enums.PaymentProviderPaymob:
		paymobOrderID, err := strconv.ParseInt(reference, 10, 64)
		if err != nil {
			return err
		}
		return guardSettled(db.Model(&models.PaymobPayment{}).
			Where("paymob_order_id = ?", paymobOrderID), status).
			Update("status", status).Error
	case enums.PaymentProviderFawry:
		return guardSettled(db.Model(&models.FawryPayment{}).
			Where("reference_number = ?", reference), status).
			Update("status", status).Error
	case enums.PaymentProviderAman:
		return guardSettled(db.Model(&models.AmanPayment{}).
			Where("reference_number = ?", reference), status).
			Update("status", status).Error
	default:
		return gorm.ErrInvalidField
	}
}

// guardSettled keeps a paid attempt paid; a late denial racing a settled
// charge must not rewrite the durable record.
func guardSettled(tx *gorm.DB, status enums.ProviderPaymentStatus) *gorm.DB {
	if status == enums.ProviderPaymentStatusFailed {
		return tx.Where("status <> ?", enums.ProviderPaymentStatusPaid)
	}
	return tx
}

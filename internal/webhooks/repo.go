package webhooks

import (
	"context"

	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a webhooks repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePaymobCallback(ctx context.Context, row *models.PaymobCallback) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) CreateFawryCallback(ctx context.Context, row *models.FawryCallback) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) CreateAmanCallback(ctx context.Context, row *models.AmanCallback) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindPaymobAttempt(ctx context.Context, paymobOrderID int64) (*models.PaymobPayment, error) {
	var row models.PaymobPayment
	err := r.db.WithContext(ctx).
		Where("paymob_order_id = ?", paymobOrderID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindFawryAttempt(ctx context.Context, merchantRef string) (*models.FawryPayment, error) {
	var row models.FawryPayment
	err := r.db.WithContext(ctx).
		Where("merchant_ref = ?", merchantRef).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindAmanAttempt(ctx context.Context, merchantRef string) (*models.AmanPayment, error) {
	var row models.AmanPayment
	err := r.db.WithContext(ctx).
		Where("merchant_ref = ?", merchantRef).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

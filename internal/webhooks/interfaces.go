package webhooks

import (
	"context"

	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/pkg/db/models"
)

// Repository persists callback rows and resolves the provider attempt a
// callback belongs to.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreatePaymobCallback(ctx context.Context, row *models.PaymobCallback) error
	CreateFawryCallback(ctx context.Context, row *models.FawryCallback) error
	CreateAmanCallback(ctx context.Context, row *models.AmanCallback) error

	FindPaymobAttempt(ctx context.Context, paymobOrderID int64) (*models.PaymobPayment, error)
	FindFawryAttempt(ctx context.Context, merchantRef string) (*models.FawryPayment, error)
	FindAmanAttempt(ctx context.Context, merchantRef string) (*models.AmanPayment, error)
}

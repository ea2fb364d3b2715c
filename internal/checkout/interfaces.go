package checkout

import (
	"context"

	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/pkg/db/models"
)

// Repository defines persistence operations for cutting orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	CreateTimelineEntry(ctx context.Context, entry *models.OrderTimeline) error
	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)
}

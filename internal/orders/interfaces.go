package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/pkg/db/models"
	"github.com/rafal-store/rafal-backend/pkg/enums"
	"github.com/rafal-store/rafal-backend/pkg/pagination"
)

// Repository defines persistence operations for order reads and transitions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	CreateTimelineEntry(ctx context.Context, entry *models.OrderTimeline) error
	ListTimeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimeline, error)
}

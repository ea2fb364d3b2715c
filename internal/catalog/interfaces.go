package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/pkg/db/models"
	"github.com/rafal-store/rafal-backend/pkg/pagination"
)

// ProductFilter narrows a product listing.
type ProductFilter struct {
	CategorySlug string
	Search       string
}

// Repository defines persistence operations for browsing the catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) ([]models.Product, string, error)
	FindProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ListCategories(ctx context.Context) ([]models.Category, error)

	ListReviews(ctx context.Context, productID uuid.UUID) ([]models.ProductReview, error)
	ReviewAggregate(ctx context.Context, productID uuid.UUID) (float64, int, error)
	FindReview(ctx context.Context, productID, userID uuid.UUID) (*models.ProductReview, error)
	SaveReview(ctx context.Context, review *models.ProductReview) error

	ListWishlist(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error)
	FindWishlistItem(ctx context.Context, userID, productID uuid.UUID) (*models.WishlistItem, error)
	CreateWishlistItem(ctx context.Context, item *models.WishlistItem) error
	DeleteWishlistItem(ctx context.Context, userID, productID uuid.UUID) error
}

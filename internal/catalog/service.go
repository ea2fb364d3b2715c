package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/pkg/db/models"
	pkgerrors "github.com/rafal-store/rafal-backend/pkg/errors"
	"github.com/rafal-store/rafal-backend/pkg/pagination"
)

// Service covers catalog browsing, reviews, and wishlists.
type Service interface {
	ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) (*ProductList, error)
	GetProduct(ctx context.Context, slug string) (*ProductDetail, error)
	ListCategories(ctx context.Context) ([]CategoryView, error)

	ListReviews(ctx context.Context, productID uuid.UUID) ([]ReviewView, error)
	SubmitReview(ctx context.Context, userID, productID uuid.UUID, req ReviewRequest) (*ReviewView, error)

	ListWishlist(ctx context.Context, userID uuid.UUID) ([]WishlistView, error)
	AddToWishlist(ctx context.Context, userID, productID uuid.UUID) error
	RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds a catalog service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) (*ProductList, error) {
	products, nextCursor, err := s.repo.ListProducts(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	list := &ProductList{Products: make([]ProductSummary, 0, len(products)), NextCursor: nextCursor}
	for i := range products {
		product := &products[i]
		list.Products = append(list.Products, ProductSummary{
			ID:      product.ID,
			Name:    product.Name,
			Slug:    product.Slug,
			Price:   product.Price,
			Stock:   product.Stock,
			InStock: inStock(product),
			Colors:  newColorViews(product.Colors),
		})
	}
	return list, nil
}

func (s *service) GetProduct(ctx context.Context, slug string) (*ProductDetail, error) {
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product slug required")
	}

	product, err := s.repo.FindProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	average, count, err := s.repo.ReviewAggregate(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate reviews")
	}

	return &ProductDetail{
		ID:            product.ID,
		CategoryID:    product.CategoryID,
		Name:          product.Name,
		Slug:          product.Slug,
		Description:   product.Description,
		Price:         product.Price,
		Stock:         product.Stock,
		InStock:       inStock(product),
		Colors:        newColorViews(product.Colors),
		AverageRating: average,
		ReviewCount:   count,
	}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryView, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	views := make([]CategoryView, 0, len(categories))
	for _, category := range categories {
		views = append(views, CategoryView{ID: category.ID, Name: category.Name, Slug: category.Slug})
	}
	return views, nil
}

func (s *service) ListReviews(ctx context.Context, productID uuid.UUID) ([]ReviewView, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	reviews, err := s.repo.ListReviews(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	views := make([]ReviewView, 0, len(reviews))
	for _, review := range reviews {
		views = append(views, ReviewView{
			ID:        review.ID,
			UserID:    review.UserID,
			Rating:    review.Rating,
			Comment:   review.Comment,
			CreatedAt: review.CreatedAt,
		})
	}
	return views, nil
}

// SubmitReview creates the caller's review or replaces their earlier one;
// the (product, user) pair stays unique either way.
func (s *service) SubmitReview(ctx context.Context, userID, productID uuid.UUID, req ReviewRequest) (*ReviewView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	if _, err := s.loadActiveProduct(ctx, productID); err != nil {
		return nil, err
	}

	review, err := s.repo.FindReview(ctx, productID, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
		}
		review = &models.ProductReview{ID: uuid.New(), ProductID: productID, UserID: userID}
	}
	review.Rating = req.Rating
	review.Comment = req.Comment

	if err := s.repo.SaveReview(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save review")
	}

	return &ReviewView{
		ID:        review.ID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	}, nil
}

func (s *service) ListWishlist(ctx context.Context, userID uuid.UUID) ([]WishlistView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	items, err := s.repo.ListWishlist(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}

	views := make([]WishlistView, 0, len(items))
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		views = append(views, WishlistView{
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			Slug:      item.Product.Slug,
			Price:     item.Product.Price,
			InStock:   inStock(item.Product),
			AddedAt:   item.CreatedAt,
		})
	}
	return views, nil
}

// AddToWishlist is idempotent; pinning an already pinned product is a no-op.
func (s *service) AddToWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if _, err := s.loadActiveProduct(ctx, productID); err != nil {
		return err
	}

	if _, err := s.repo.FindWishlistItem(ctx, userID, productID); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check wishlist")
	}

	item := &models.WishlistItem{ID: uuid.New(), UserID: userID, ProductID: productID}
	if err := s.repo.CreateWishlistItem(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	return nil
}

func (s *service) RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if err := s.repo.DeleteWishlistItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}

func (s *service) loadActiveProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

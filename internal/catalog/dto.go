package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafal-store/rafal-backend/pkg/db/models"
)

// ColorView is a product color variant read model.
type ColorView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	HexCode  string    `json:"hex_code,omitempty"`
	Stock    int       `json:"stock"`
	IsActive bool      `json:"is_active"`
}

// ProductSummary is the listing read model.
type ProductSummary struct {
	ID      uuid.UUID       `json:"id"`
	Name    string          `json:"name"`
	Slug    string          `json:"slug"`
	Price   decimal.Decimal `json:"price"`
	Stock   int             `json:"stock"`
	InStock bool            `json:"in_stock"`
	Colors  []ColorView     `json:"colors,omitempty"`
}

// ProductList is one page of products.
type ProductList struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// ProductDetail is the full product read model with review aggregates.
type ProductDetail struct {
	ID            uuid.UUID       `json:"id"`
	CategoryID    *uuid.UUID      `json:"category_id,omitempty"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	InStock       bool            `json:"in_stock"`
	Colors        []ColorView     `json:"colors,omitempty"`
	AverageRating float64         `json:"average_rating"`
	ReviewCount   int             `json:"review_count"`
}

// CategoryView is the category read model.
type CategoryView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// ReviewRequest creates or replaces the caller's review for a product.
type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// ReviewView is one customer review.
type ReviewView struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// WishlistView is one pinned product.
type WishlistView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Price     decimal.Decimal `json:"price"`
	InStock   bool            `json:"in_stock"`
	AddedAt   time.Time       `json:"added_at"`
}

func newColorViews(colors []models.ProductColor) []ColorView {
	views := make([]ColorView, 0, len(colors))
	for _, color := range colors {
		views = append(views, ColorView{
			ID:       color.ID,
			Name:     color.Name,
			HexCode:  color.HexCode,
			Stock:    color.Stock,
			IsActive: color.IsActive,
		})
	}
	return views
}

func inStock(product *models.Product) bool {
	if len(product.Colors) == 0 {
		return product.Stock > 0
	}
	for _, color := range product.Colors {
		if color.IsActive && color.Stock > 0 {
			return true
		}
	}
	return false
}

package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/pkg/db/models"
	pkgerrors "github.com/rafal-store/rafal-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines cart operations for both authenticated and anonymous owners.
type Service interface {
	GetOrCreate(ctx context.Context, owner Owner) (*Summary, error)
	AddItem(ctx context.Context, owner Owner, input AddItemInput) (*Summary, error)
	UpdateQuantity(ctx context.Context, owner Owner, itemID uuid.UUID, quantity int) (*Summary, error)
	RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*Summary, error)
	Clear(ctx context.Context, owner Owner) error
	Merge(ctx context.Context, userID uuid.UUID, sessionKey string) (*Summary, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) GetOrCreate(ctx context.Context, owner Owner) (*Summary, error) {
	cart, minted, err := s.getOrCreateCart(ctx, s.repo, owner)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, s.repo, cart, minted)
}

func (s *service) AddItem(ctx context.Context, owner Owner, input AddItemInput) (*Summary, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var summary *Summary
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, minted, err := s.getOrCreateCart(ctx, repo, owner)
		if err != nil {
			return err
		}

		product, err := repo.FindProduct(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
		}

		if input.ColorID != nil {
			color, err := repo.FindColor(ctx, *input.ColorID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "color not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load color")
			}
			if color.ProductID != product.ID {
				return pkgerrors.New(pkgerrors.CodeValidation, "color does not belong to product")
			}
			if !color.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, "color is not available")
			}
			if color.Stock < input.Quantity {
				return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock for color")
			}
		} else if product.Stock < input.Quantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock")
		}

		existing, err := repo.FindItem(ctx, cart.ID, product.ID, input.ColorID)
		switch {
		case err == nil:
			if err := repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+input.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item := &models.CartItem{
				ID:        uuid.New(),
				CartID:    cart.ID,
				ProductID: product.ID,
				ColorID:   input.ColorID,
				Quantity:  input.Quantity,
			}
			if _, err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find cart item")
		}

		summary, err = s.summarize(ctx, repo, cart, minted)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *service) UpdateQuantity(ctx context.Context, owner Owner, itemID uuid.UUID, quantity int) (*Summary, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	var summary *Summary
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.findCart(ctx, repo, owner)
		if err != nil {
			return err
		}

		item, err := findOwnedItem(cart, itemID)
		if err != nil {
			return err
		}

		if quantity <= 0 {
			if err := repo.DeleteItem(ctx, item.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
			}
		} else if err := repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}

		summary, err = s.summarize(ctx, repo, cart, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*Summary, error) {
	return s.UpdateQuantity(ctx, owner, itemID, 0)
}

func (s *service) Clear(ctx context.Context, owner Owner) error {
	cart, err := s.findCart(ctx, s.repo, owner)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil
		}
		return err
	}
	if err := s.repo.DeleteItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Merge folds an anonymous cart into the user's cart after login. Quantities
// for matching (product, color) pairs are combined, other items move over,
// and the anonymous cart is deleted. Replaying the merge after the anonymous
// cart is gone is a no-op.
func (s *service) Merge(ctx context.Context, userID uuid.UUID, sessionKey string) (*Summary, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if sessionKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session key required")
	}

	var summary *Summary
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		anon, err := repo.FindBySessionKey(ctx, sessionKey)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Already merged, or the session cart never existed.
				userCart, _, err := s.getOrCreateCart(ctx, repo, Owner{UserID: &userID})
				if err != nil {
					return err
				}
				summary, err = s.summarize(ctx, repo, userCart, "")
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session cart")
		}

		userCart, _, err := s.getOrCreateCart(ctx, repo, Owner{UserID: &userID})
		if err != nil {
			return err
		}

		anonItems, err := repo.ListItems(ctx, anon.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list session cart items")
		}

		for _, item := range anonItems {
			existing, err := repo.FindItem(ctx, userCart.ID, item.ProductID, item.ColorID)
			switch {
			case err == nil:
				if err := repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+item.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart item")
				}
				if err := repo.DeleteItem(ctx, item.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop merged item")
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := repo.MoveItem(ctx, item.ID, userCart.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move cart item")
				}
			default:
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find cart item")
			}
		}

		if err := repo.Delete(ctx, anon.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete session cart")
		}

		summary, err = s.summarize(ctx, repo, userCart, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *service) getOrCreateCart(ctx context.Context, repo Repository, owner Owner) (*models.Cart, string, error) {
	if owner.UserID != nil {
		cart, err := repo.FindByUser(ctx, *owner.UserID)
		if err == nil {
			return cart, "", nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		created, err := repo.Create(ctx, &models.Cart{ID: uuid.New(), UserID: owner.UserID})
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}
		return created, "", nil
	}

	if owner.SessionKey != "" {
		cart, err := repo.FindBySessionKey(ctx, owner.SessionKey)
		if err == nil {
			return cart, "", nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
	}

	// Anonymous owner with no usable key: mint one.
	key := owner.SessionKey
	minted := ""
	if key == "" {
		key = uuid.NewString()
		minted = key
	}
	created, err := repo.Create(ctx, &models.Cart{ID: uuid.New(), SessionKey: &key})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	if minted == "" {
		minted = key
	}
	return created, minted, nil
}

func (s *service) findCart(ctx context.Context, repo Repository, owner Owner) (*models.Cart, error) {
	var (
		cart *models.Cart
		err  error
	)
	switch {
	case owner.UserID != nil:
		cart, err = repo.FindByUser(ctx, *owner.UserID)
	case owner.SessionKey != "":
		cart, err = repo.FindBySessionKey(ctx, owner.SessionKey)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner required")
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) summarize(ctx context.Context, repo Repository, cart *models.Cart, mintedKey string) (*Summary, error) {
	items, err := repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}

	summary := &Summary{
		CartID:     cart.ID,
		SessionKey: mintedKey,
		Items:      make([]ItemView, 0, len(items)),
		Subtotal:   decimal.Zero,
	}
	for _, item := range items {
		view := ItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			ColorID:   item.ColorID,
			Quantity:  item.Quantity,
		}
		if item.Product != nil {
			view.Name = item.Product.Name
			view.UnitPrice = item.Product.Price
		}
		if item.Color != nil {
			view.ColorName = item.Color.Name
		}
		view.LineTotal = view.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		summary.Subtotal = summary.Subtotal.Add(view.LineTotal)
		summary.Items = append(summary.Items, view)
	}
	return summary, nil
}

func findOwnedItem(cart *models.Cart, itemID uuid.UUID) (*models.CartItem, error) {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return &cart.Items[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

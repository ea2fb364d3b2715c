package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rafal-store/rafal-backend/api/responses"
	"github.com/rafal-store/rafal-backend/api/validators"
	checkoutsvc "github.com/rafal-store/rafal-backend/internal/checkout"
	"github.com/rafal-store/rafal-backend/pkg/logger"
)

type shippingPayload struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Address  string `json:"address" validate:"required"`
	City     string `json:"city" validate:"required"`
	Notes    string `json:"notes"`
}

func (p shippingPayload) toDetails() checkoutsvc.ShippingDetails {
	return checkoutsvc.ShippingDetails{
		FullName: p.FullName,
		Phone:    p.Phone,
		Email:    p.Email,
		Address:  p.Address,
		City:     p.City,
		Notes:    p.Notes,
	}
}

// Checkout converts the caller's cart into a pending order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload shippingPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Checkout(r.Context(), checkoutsvc.CheckoutInput{
			Owner:    owner,
			Shipping: payload.toDetails(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

type directBuyPayload struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	ColorID   *uuid.UUID      `json:"color_id,omitempty"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	Shipping  shippingPayload `json:"shipping" validate:"required"`
}

// CheckoutDirect orders a single product without touching the cart.
func CheckoutDirect(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload directBuyPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.DirectBuy(r.Context(), checkoutsvc.DirectBuyInput{
			Owner:     owner,
			ProductID: payload.ProductID,
			ColorID:   payload.ColorID,
			Quantity:  payload.Quantity,
			Shipping:  payload.Shipping.toDetails(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rafal-store/rafal-backend/api/responses"
	paymentsvc "github.com/rafal-store/rafal-backend/internal/payments"
	"github.com/rafal-store/rafal-backend/pkg/enums"
	pkgerrors "github.com/rafal-store/rafal-backend/pkg/errors"
	"github.com/rafal-store/rafal-backend/pkg/logger"
)

// PaymentProcess opens a payment attempt for a pending order with the
// provider named in the path.
func PaymentProcess(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		provider, err := pathProvider(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		initiation, err := svc.Initiate(r.Context(), userID, orderID, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, initiation)
	}
}

// PaymentVerify polls the provider for a verdict on the order's latest
// attempt and applies it when settled.
func PaymentVerify(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		provider, err := pathProvider(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Verify(r.Context(), userID, orderID, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

func pathProvider(r *http.Request) (enums.PaymentProvider, error) {
	provider, err := enums.ParsePaymentProvider(chi.URLParam(r, "provider"))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment provider")
	}
	return provider, nil
}

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rafal-store/rafal-backend/api/middleware"
	"github.com/rafal-store/rafal-backend/api/validators"
	cartsvc "github.com/rafal-store/rafal-backend/internal/cart"
	pkgerrors "github.com/rafal-store/rafal-backend/pkg/errors"
	"github.com/rafal-store/rafal-backend/pkg/pagination"
)

const maxPageSize = 100

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxPageSize)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}, nil
}

// cartOwner resolves the caller's cart identity: the authenticated user when
// present, otherwise the anonymous session key.
func cartOwner(r *http.Request) (cartsvc.Owner, error) {
	owner := cartsvc.Owner{SessionKey: middleware.SessionKeyFromContext(r.Context())}

	raw := middleware.UserIDFromContext(r.Context())
	if raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return cartsvc.Owner{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
		}
		owner.UserID = &userID
	}
	return owner, nil
}

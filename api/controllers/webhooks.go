package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rafal-store/rafal-backend/api/responses"
	webhooksvc "github.com/rafal-store/rafal-backend/internal/webhooks"
	"github.com/rafal-store/rafal-backend/pkg/logger"
)

// Webhook bodies are capped well above any real provider payload.
const maxWebhookBody = 1 << 20

// Providers retry on non-2xx, so every recorded delivery is acknowledged
// with 200 even when it matches nothing. Only storage failures surface.

// PaymobWebhook ingests card-gateway transaction callbacks. The HMAC rides
// in the hmac query parameter.
func PaymobWebhook(svc webhooksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := decodeWebhookBody(r)
		if err != nil {
			logg.Warn(r.Context(), "paymob callback body unreadable")
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}

		if err := svc.HandlePaymob(r.Context(), payload, r.URL.Query().Get("hmac")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}

// FawryWebhook ingests Fawry server notifications.
func FawryWebhook(svc webhooksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := decodeWebhookBody(r)
		if err != nil {
			logg.Warn(r.Context(), "fawry callback body unreadable")
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}

		if err := svc.HandleFawry(r.Context(), payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}

// AmanWebhook ingests Aman notifications.
func AmanWebhook(svc webhooksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := decodeWebhookBody(r)
		if err != nil {
			logg.Warn(r.Context(), "aman callback body unreadable")
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}

		if err := svc.HandleAman(r.Context(), payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}

func decodeWebhookBody(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return nil, err
	}

	payload := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

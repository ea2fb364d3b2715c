package fawry

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafal-store/rafal-backend/internal/providers"
	"github.com/rafal-store/rafal-backend/pkg/config"
)

func TestCreateTransactionSignsCharge(t *testing.T) {
	t.Parallel()

	var received chargeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != chargePath {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode charge request: %v", err)
		}
		json.NewEncoder(w).Encode(chargeResponse{ReferenceNumber: "931000001", StatusCode: 200})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	order := providers.OrderInfo{
		OrderID:     uuid.New(),
		OrderNumber: "ORD-AAAA0001",
		Amount:      decimal.RequireFromString("349.50"),
		Currency:    "EGP",
		Phone:       "01001234567",
	}

	tx, err := client.CreateTransaction(context.Background(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.MerchantRefNum != "RAFAL-ORD-AAAA0001" {
		t.Fatalf("unexpected merchant ref: %q", received.MerchantRefNum)
	}
	if received.PaymentMethod != payAtFawry {
		t.Fatalf("unexpected payment method: %q", received.PaymentMethod)
	}
	sum := md5.Sum([]byte("MC123" + "RAFAL-ORD-AAAA0001" + "01001234567" + payAtFawry + "349.50" + "secret"))
	if received.Signature != hex.EncodeToString(sum[:]) {
		t.Fatalf("unexpected charge signature: %q", received.Signature)
	}

	if tx.ProviderRef != "931000001" || tx.PaymentCode != "931000001" {
		t.Fatalf("expected the gateway reference, got %+v", tx)
	}
	if tx.AmountCents != 34950 {
		t.Fatalf("expected 34950 cents, got %d", tx.AmountCents)
	}
	if !tx.ExpiresAt.After(time.Now()) {
		t.Fatal("expected a future expiry")
	}
}

func TestCreateTransactionMintsReferenceWhenOmitted(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chargeResponse{StatusCode: 200})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	tx, err := client.CreateTransaction(context.Background(), providers.OrderInfo{
		OrderNumber: "ORD-AAAA0002",
		Amount:      decimal.NewFromInt(100),
		Phone:       "01001234567",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.ProviderRef == "" {
		t.Fatal("expected a minted reference when the gateway omits one")
	}
	if _, err := uuid.Parse(tx.ProviderRef); err != nil {
		t.Fatalf("expected a uuid fallback reference, got %q", tx.ProviderRef)
	}
}

func TestVerifyTransactionPaid(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != statusPath {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("merchantRefNumber") != "RAFAL-ORD-AAAA0001" {
			t.Errorf("unexpected merchant ref %q", r.URL.Query().Get("merchantRefNumber"))
		}
		json.NewEncoder(w).Encode(statusResponse{
			OrderStatus:       "PAID",
			FawryRefNumber:    "931000001",
			PaymentAmount:     349.50,
			StatusDescription: "paid at kiosk",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	verification, err := client.VerifyTransaction(context.Background(), "RAFAL-ORD-AAAA0001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verification.Found || !verification.Success {
		t.Fatalf("expected a found paid verification, got %+v", verification)
	}
	if verification.TransactionID != "931000001" {
		t.Fatalf("unexpected transaction id: %q", verification.TransactionID)
	}
}

func TestVerifyTransactionNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	verification, err := client.VerifyTransaction(context.Background(), "RAFAL-ORD-MISSING")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verification.Found {
		t.Fatal("expected not found")
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(config.FawryConfig{
		MerchantCode: "MC123",
		SecretKey:    "secret",
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
		IntentExpiry: 72 * time.Hour,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client
}

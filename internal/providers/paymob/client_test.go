package paymob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rafal-store/rafal-backend/pkg/config"
)

func TestVerifyTransactionDecodesNestedMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case authPath:
			w.Write([]byte(`{"token": "tok-1"}`))
		case inquiryPath:
			// Raw gateway shape: the human-readable verdict sits under data.
			w.Write([]byte(`{"id": 129013, "success": true, "pending": false, "data": {"message": "Approved"}}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestPaymobClient(t, server.URL)
	verification, err := client.VerifyTransaction(context.Background(), "ORD-AAAA0001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verification.Found || !verification.Success {
		t.Fatalf("expected a found successful verification, got %+v", verification)
	}
	if verification.TransactionID != "129013" {
		t.Fatalf("unexpected transaction id: %q", verification.TransactionID)
	}
	if verification.Message != "Approved" {
		t.Fatalf("expected the nested gateway message, got %q", verification.Message)
	}
}

func TestVerifyTransactionPendingIsNotSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case authPath:
			w.Write([]byte(`{"token": "tok-1"}`))
		case inquiryPath:
			w.Write([]byte(`{"id": 129014, "success": true, "pending": true, "data": {"message": "Pending"}}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestPaymobClient(t, server.URL)
	verification, err := client.VerifyTransaction(context.Background(), "ORD-AAAA0002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verification.Success {
		t.Fatal("a pending transaction must not verify as success")
	}
}

func newTestPaymobClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(config.PaymobConfig{
		APIKey:        "key",
		IntegrationID: "int-1",
		IframeID:      "if-1",
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		IntentExpiry:  time.Hour,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client
}

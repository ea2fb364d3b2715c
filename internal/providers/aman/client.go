package aman

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafal-store/rafal-backend/internal/providers"
	"github.com/rafal-store/rafal-backend/pkg/config"
	pkgerrors "github.com/rafal-store/rafal-backend/pkg/errors"
)

const (
	chargePath     = "/api/payments/charge"
	statusPath     = "/api/payments/status"
	cashMethod     = "CASH"
	merchantPrefix = "RAFAL-"
	paidStatus     = "PAID"
)

// Client talks to the Aman outlet network. The wire contract mirrors the
// kiosk gateway: MD5-signed charge requests, SHA256-signed status polls.
type Client struct {
	cfg  config.AmanConfig
	http *http.Client
}

// NewClient builds an Aman adapter from config.
func NewClient(cfg config.AmanConfig, httpClient *http.Client) (*Client, error) {
	if cfg.MerchantID == "" {
		return nil, fmt.Errorf("aman merchant id required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("aman secret key required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

var _ providers.Adapter = (*Client)(nil)

// MerchantRef derives the outlet correlation id from the order number.
func MerchantRef(orderNumber string) string {
	return merchantPrefix + orderNumber
}

type chargeRequest struct {
	MerchantID     string  `json:"merchantId"`
	MerchantRefNum string  `json:"merchantRefNum"`
	CustomerMobile string  `json:"customerMobile"`
	CustomerEmail  string  `json:"customerEmail,omitempty"`
	PaymentMethod  string  `json:"paymentMethod"`
	Amount         float64 `json:"amount"`
	ExpiryDate     int64   `json:"expiryDate"`
	Description    string  `json:"description"`
	Signature      string  `json:"signature"`
}

type chargeResponse struct {
	ReferenceNumber   string `json:"referenceNumber"`
	StatusCode        int    `json:"statusCode"`
	StatusDescription string `json:"statusDescription"`
}

type statusResponse struct {
	PaymentStatus     string  `json:"paymentStatus"`
	TransactionID     string  `json:"transactionId"`
	PaidAmount        float64 `json:"paidAmount"`
	StatusDescription string  `json:"statusDescription"`
}

// CreateTransaction opens a cash charge and returns the reference code the
// shopper pays against at an outlet.
func (c *Client) CreateTransaction(ctx context.Context, order providers.OrderInfo) (*providers.Transaction, error) {
	merchantRef := MerchantRef(order.OrderNumber)

	expiry := c.cfg.IntentExpiry
	if expiry <= 0 {
		expiry = 72 * time.Hour
	}
	expiresAt := time.Now().Add(expiry)

	amount, _ := order.Amount.Round(2).Float64()
	payload := chargeRequest{
		MerchantID:     c.cfg.MerchantID,
		MerchantRefNum: merchantRef,
		CustomerMobile: order.Phone,
		CustomerEmail:  order.Email,
		PaymentMethod:  cashMethod,
		Amount:         amount,
		ExpiryDate:     expiresAt.UnixMilli(),
		Description:    "RAFAL order " + order.OrderNumber,
		Signature:      c.chargeSignature(merchantRef, order.Phone, order.Amount.StringFixed(2)),
	}

	var charged chargeResponse
	if err := c.post(ctx, chargePath, payload, &charged); err != nil {
		return nil, err
	}

	reference := charged.ReferenceNumber
	if reference == "" {
		reference = uuid.NewString()
	}

	return &providers.Transaction{
		ProviderRef: reference,
		MerchantRef: merchantRef,
		PaymentCode: reference,
		AmountCents: order.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		ExpiresAt:   expiresAt,
	}, nil
}

// VerifyTransaction polls the payment status by merchant reference.
func (c *Client) VerifyTransaction(ctx context.Context, merchantRef string) (*providers.Verification, error) {
	query := url.Values{}
	query.Set("merchantId", c.cfg.MerchantID)
	query.Set("merchantRefNumber", merchantRef)
	query.Set("signature", c.statusSignature(merchantRef))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+statusPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build status request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aman unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &providers.Verification{Found: false}, nil
	}
	if resp.StatusCode >= 400 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("aman returned status %d", resp.StatusCode))
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode status response")
	}

	return &providers.Verification{
		Found:         true,
		Success:       status.PaymentStatus == paidStatus,
		TransactionID: status.TransactionID,
		Message:       status.StatusDescription,
	}, nil
}

func (c *Client) chargeSignature(merchantRef, mobile, amount string) string {
	sum := md5.Sum([]byte(c.cfg.MerchantID + merchantRef + mobile + cashMethod + amount + c.cfg.SecretKey))
	return hex.EncodeToString(sum[:])
}

func (c *Client) statusSignature(merchantRef string) string {
	sum := sha256.Sum256([]byte(c.cfg.MerchantID + merchantRef + c.cfg.SecretKey))
	return hex.EncodeToString(sum[:])
}

// CallbackSignature computes the expected signature on a server notification.
func CallbackSignature(secret, merchantRef, paymentStatus string) string {
	sum := sha256.Sum256([]byte(merchantRef + paymentStatus + secret))
	return hex.EncodeToString(sum[:])
}

func (c *Client) post(ctx context.Context, path string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode aman request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build aman request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aman unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("aman returned status %d", resp.StatusCode))
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode aman response")
		}
	}
	return nil
}

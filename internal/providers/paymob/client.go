package paymob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rafal-store/rafal-backend/internal/providers"
	"github.com/rafal-store/rafal-backend/pkg/config"
	pkgerrors "github.com/rafal-store/rafal-backend/pkg/errors"
)

const (
	authPath       = "/api/auth/tokens"
	orderPath      = "/api/ecommerce/orders"
	paymentKeyPath = "/api/acceptance/payment_keys"
	inquiryPath    = "/api/ecommerce/orders/transaction_inquiry"
	iframePath     = "/api/acceptance/iframes"
)

// Client drives the card gateway's three-step flow: auth token, order
// registration, then a single-use payment key embedded in the iframe URL.
type Client struct {
	cfg  config.PaymobConfig
	http *http.Client
}

// NewClient builds a card-gateway adapter from config.
func NewClient(cfg config.PaymobConfig, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("paymob api key required")
	}
	if cfg.IntegrationID == "" {
		return nil, fmt.Errorf("paymob integration id required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

var _ providers.Adapter = (*Client)(nil)

type authRequest struct {
	APIKey string `json:"api_key"`
}

type authResponse struct {
	Token string `json:"token"`
}

type orderRequest struct {
	AuthToken       string `json:"auth_token"`
	DeliveryNeeded  bool   `json:"delivery_needed"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	MerchantOrderID string `json:"merchant_order_id"`
	Items           []any  `json:"items"`
}

type orderResponse struct {
	ID int64 `json:"id"`
}

type billingData struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Street      string `json:"street"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Apartment   string `json:"apartment"`
	Floor       string `json:"floor"`
	Building    string `json:"building"`
}

type paymentKeyRequest struct {
	AuthToken     string      `json:"auth_token"`
	AmountCents   int64       `json:"amount_cents"`
	Expiration    int         `json:"expiration"`
	OrderID       int64       `json:"order_id"`
	BillingData   billingData `json:"billing_data"`
	Currency      string      `json:"currency"`
	IntegrationID string      `json:"integration_id"`
}

type paymentKeyResponse struct {
	Token string `json:"token"`
}

type inquiryRequest struct {
	AuthToken       string `json:"auth_token"`
	MerchantOrderID string `json:"merchant_order_id"`
}

type inquiryResponse struct {
	ID      int64 `json:"id"`
	Success bool  `json:"success"`
	Pending bool  `json:"pending"`
	Data    struct {
		Message string `json:"message"`
	} `json:"data"`
}

// CreateTransaction registers an order with the gateway and returns the
// iframe URL for the shopper. Amount is converted to cents.
func (c *Client) CreateTransaction(ctx context.Context, order providers.OrderInfo) (*providers.Transaction, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	amountCents := order.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	var registered orderResponse
	err = c.post(ctx, orderPath, orderRequest{
		AuthToken:       token,
		AmountCents:     amountCents,
		Currency:        order.Currency,
		MerchantOrderID: order.OrderNumber,
		Items:           []any{},
	}, &registered)
	if err != nil {
		return nil, err
	}
	if registered.ID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card gateway returned no order id")
	}

	expiry := c.cfg.IntentExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	var key paymentKeyResponse
	err = c.post(ctx, paymentKeyPath, paymentKeyRequest{
		AuthToken:   token,
		AmountCents: amountCents,
		Expiration:  int(expiry.Seconds()),
		OrderID:     registered.ID,
		BillingData: billingData{
			FirstName:   order.CustomerName,
			LastName:    "NA",
			PhoneNumber: order.Phone,
			Email:       order.Email,
			Street:      "NA",
			City:        "NA",
			Country:     "EG",
			Apartment:   "NA",
			Floor:       "NA",
			Building:    "NA",
		},
		Currency:      order.Currency,
		IntegrationID: c.cfg.IntegrationID,
	}, &key)
	if err != nil {
		return nil, err
	}
	if key.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card gateway returned no payment key")
	}

	return &providers.Transaction{
		ProviderRef: strconv.FormatInt(registered.ID, 10),
		MerchantRef: order.OrderNumber,
		PaymentURL:  fmt.Sprintf("%s%s/%s?payment_token=%s", c.cfg.BaseURL, iframePath, c.cfg.IframeID, key.Token),
		AmountCents: amountCents,
		ExpiresAt:   time.Now().Add(expiry),
	}, nil
}

// VerifyTransaction asks the gateway whether the registered order has a
// settled transaction. providerRef is our merchant order reference.
func (c *Client) VerifyTransaction(ctx context.Context, providerRef string) (*providers.Verification, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	var result inquiryResponse
	err = c.post(ctx, inquiryPath, inquiryRequest{
		AuthToken:       token,
		MerchantOrderID: providerRef,
	}, &result)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return &providers.Verification{Found: false}, nil
		}
		return nil, err
	}

	return &providers.Verification{
		Found:         true,
		Success:       result.Success && !result.Pending,
		TransactionID: strconv.FormatInt(result.ID, 10),
		Message:       result.Data.Message,
	}, nil
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	var auth authResponse
	if err := c.post(ctx, authPath, authRequest{APIKey: c.cfg.APIKey}, &auth); err != nil {
		return "", err
	}
	if auth.Token == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "card gateway returned no auth token")
	}
	return auth.Token, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "card gateway unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "gateway record not found")
	}
	if resp.StatusCode >= 400 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("card gateway returned status %d", resp.StatusCode))
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
		}
	}
	return nil
}

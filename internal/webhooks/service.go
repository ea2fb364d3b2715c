package webhooks

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/internal/payments"
	"github.com/rafal-store/rafal-backend/internal/providers/aman"
	"github.com/rafal-store/rafal-backend/internal/providers/fawry"
	"github.com/rafal-store/rafal-backend/internal/providers/paymob"
	"github.com/rafal-store/rafal-backend/pkg/db/models"
	"github.com/rafal-store/rafal-backend/pkg/enums"
	pkgerrors "github.com/rafal-store/rafal-backend/pkg/errors"
	"github.com/rafal-store/rafal-backend/pkg/logger"
	"github.com/rafal-store/rafal-backend/pkg/metrics"
)

// Secrets holds the per-provider callback signing secrets. An empty secret
// disables signature verification for that provider.
type Secrets struct {
	PaymobHMAC string
	Fawry      string
	Aman       string
}

// Service ingests provider callbacks. Every delivery is recorded before any
// matching happens; reconciliation only runs for signed, matched callbacks.
type Service interface {
	HandlePaymob(ctx context.Context, payload map[string]any, receivedHMAC string) error
	HandleFawry(ctx context.Context, payload map[string]any) error
	HandleAman(ctx context.Context, payload map[string]any) error
}

type service struct {
	repo     Repository
	payments payments.Service
	secrets  Secrets
	logg     *logger.Logger
	metrics  *metrics.PaymentMetrics
}

// NewService builds a webhooks service with the required dependencies.
// metrics may be nil.
func NewService(repo Repository, paymentsSvc payments.Service, secrets Secrets, logg *logger.Logger, m *metrics.PaymentMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("webhooks repository required")
	}
	if paymentsSvc == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, payments: paymentsSvc, secrets: secrets, logg: logg, metrics: m}, nil
}

func (s *service) HandlePaymob(ctx context.Context, payload map[string]any, receivedHMAC string) error {
	ctx = s.logg.WithProvider(ctx, enums.PaymentProviderPaymob.String())

	obj := asObject(payload, "obj")
	if obj == nil {
		obj = payload
	}

	paymobOrderID := asInt64(asObject(obj, "order"), "id")
	hmacValid := paymob.VerifyCallbackHMAC(s.secrets.PaymobHMAC, obj, receivedHMAC)
	s.metrics.IncCallback(enums.PaymentProviderPaymob.String(), hmacValid)

	row := &models.PaymobCallback{
		ID:            uuid.New(),
		TransactionID: asString(obj, "id"),
		PaymobOrderID: paymobOrderID,
		Success:       asBool(obj, "success"),
		AmountCents:   asInt64(obj, "amount_cents"),
		Currency:      asString(obj, "currency"),
		HMACValid:     hmacValid,
		Payload:       payload,
	}

	attempt, err := s.repo.FindPaymobAttempt(ctx, paymobOrderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "match paymob callback")
	}
	if attempt != nil {
		row.PaymobPaymentID = &attempt.ID
	}

	if err := s.repo.CreatePaymobCallback(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record paymob callback")
	}

	if !hmacValid {
		s.logg.Warn(ctx, "paymob callback failed hmac verification")
		return nil
	}
	if attempt == nil {
		s.logg.Warn(s.logg.WithField(ctx, "paymob_order_id", paymobOrderID), "paymob callback for unknown transaction")
		return nil
	}

	result, err := s.payments.Reconcile(ctx, payments.ReconcileInput{
		Provider:      enums.PaymentProviderPaymob,
		Reference:     strconv.FormatInt(paymobOrderID, 10),
		Success:       row.Success,
		TransactionID: row.TransactionID,
		Message:       asString(asObject(obj, "data"), "message"),
	})
	if err != nil {
		return err
	}

	s.logReconcile(ctx, result)
	return nil
}

func (s *service) HandleFawry(ctx context.Context, payload map[string]any) error {
	ctx = s.logg.WithProvider(ctx, enums.PaymentProviderFawry.String())

	merchantRef := asString(payload, "merchantRefNumber")
	orderStatus := asString(payload, "orderStatus")

	signatureValid := true
	if s.secrets.Fawry != "" {
		signatureValid = fawry.CallbackSignature(s.secrets.Fawry, merchantRef, orderStatus) == asString(payload, "messageSignature")
	}
	s.metrics.IncCallback(enums.PaymentProviderFawry.String(), signatureValid)

	row := &models.FawryCallback{
		ID:              uuid.New(),
		MerchantRef:     merchantRef,
		ReferenceNumber: asString(payload, "fawryRefNumber"),
		OrderStatus:     orderStatus,
		PaymentAmount:   asDecimal(payload, "paymentAmount"),
		SignatureValid:  signatureValid,
		Payload:         payload,
	}

	attempt, err := s.repo.FindFawryAttempt(ctx, merchantRef)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "match fawry callback")
	}
	if attempt != nil {
		row.FawryPaymentID = &attempt.ID
	}

	if err := s.repo.CreateFawryCallback(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record fawry callback")
	}

	if !signatureValid {
		s.logg.Warn(ctx, "fawry callback failed signature verification")
		return nil
	}
	if attempt == nil {
		s.logg.Warn(s.logg.WithField(ctx, "merchant_ref", merchantRef), "fawry callback for unknown reference")
		return nil
	}

	result, err := s.payments.Reconcile(ctx, payments.ReconcileInput{
		Provider:      enums.PaymentProviderFawry,
		Reference:     attempt.ReferenceNumber,
		Success:       orderStatus == "PAID",
		TransactionID: row.ReferenceNumber,
		Message:       orderStatus,
	})
	if err != nil {
		return err
	}

	s.logReconcile(ctx, result)
	return nil
}

func (s *service) HandleAman(ctx context.Context, payload map[string]any) error {
	ctx = s.logg.WithProvider(ctx, enums.PaymentProviderAman.String())

	merchantRef := asString(payload, "merchantRefNumber")
	paymentStatus := asString(payload, "paymentStatus")

	signatureValid := true
	if s.secrets.Aman != "" {
		signatureValid = aman.CallbackSignature(s.secrets.Aman, merchantRef, paymentStatus) == asString(payload, "messageSignature")
	}
	s.metrics.IncCallback(enums.PaymentProviderAman.String(), signatureValid)

	row := &models.AmanCallback{
		ID:              uuid.New(),
		MerchantRef:     merchantRef,
		ReferenceNumber: asString(payload, "transactionId"),
		OrderStatus:     paymentStatus,
		PaymentAmount:   asDecimal(payload, "paidAmount"),
		SignatureValid:  signatureValid,
		Payload:         payload,
	}

	attempt, err := s.repo.FindAmanAttempt(ctx, merchantRef)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "match aman callback")
	}
	if attempt != nil {
		row.AmanPaymentID = &attempt.ID
	}

	if err := s.repo.CreateAmanCallback(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record aman callback")
	}

	if !signatureValid {
		s.logg.Warn(ctx, "aman callback failed signature verification")
		return nil
	}
	if attempt == nil {
		s.logg.Warn(s.logg.WithField(ctx, "merchant_ref", merchantRef), "aman callback for unknown reference")
		return nil
	}

	result, err := s.payments.Reconcile(ctx, payments.ReconcileInput{
		Provider:      enums.PaymentProviderAman,
		Reference:     attempt.ReferenceNumber,
		Success:       paymentStatus == "PAID",
		TransactionID: row.ReferenceNumber,
		Message:       paymentStatus,
	})
	if err != nil {
		return err
	}

	s.logReconcile(ctx, result)
	return nil
}

func (s *service) logReconcile(ctx context.Context, result *payments.ReconcileResult) {
	ctx = s.logg.WithOrderID(ctx, result.OrderID.String())
	switch result.Outcome {
	case payments.OutcomeApplied:
		s.logg.Info(ctx, "payment applied to order")
	case payments.OutcomeAlreadyProcessed:
		s.logg.Info(ctx, "callback replay ignored, intent already consumed")
	case payments.OutcomeDenied:
		s.logg.Info(ctx, "provider reported payment failure")
	case payments.OutcomeUnknownReference:
		s.logg.Warn(ctx, "callback reference matched no intent")
	}
}

package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/internal/providers"
	"github.com/rafal-store/rafal-backend/pkg/db/models"
	"github.com/rafal-store/rafal-backend/pkg/enums"
	pkgerrors "github.com/rafal-store/rafal-backend/pkg/errors"
	"github.com/rafal-store/rafal-backend/pkg/metrics"
)

const expiredIntentBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service covers the payment lifecycle: opening an attempt with a provider,
// polling it, and reconciling the provider's verdict onto the order.
type Service interface {
	Initiate(ctx context.Context, userID, orderID uuid.UUID, provider enums.PaymentProvider) (*Initiation, error)
	Verify(ctx context.Context, userID, orderID uuid.UUID, provider enums.PaymentProvider) (*Status, error)
	Reconcile(ctx context.Context, input ReconcileInput) (*ReconcileResult, error)
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	adapters map[enums.PaymentProvider]providers.Adapter
	currency string
	metrics  *metrics.PaymentMetrics
}

// NewService builds a payments service with the required dependencies.
// metrics may be nil. Providers without an adapter reject initiation with a
// validation error, so an empty map is allowed for reconcile-only workers.
func NewService(repo Repository, tx txRunner, adapters map[enums.PaymentProvider]providers.Adapter, currency string, m *metrics.PaymentMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if currency == "" {
		return nil, fmt.Errorf("currency required")
	}
	return &service{repo: repo, tx: tx, adapters: adapters, currency: currency, metrics: m}, nil
}

func (s *service) Initiate(ctx context.Context, userID, orderID uuid.UUID, provider enums.PaymentProvider) (*Initiation, error) {
	adapter, ok := s.adapters[provider]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment provider").
			WithDetails(map[string]any{"provider": provider})
	}

	order, err := s.loadOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status})
	}

	// Cash networks key attempts on the order number, so an open unexpired
	// attempt is returned as-is instead of opening a duplicate charge.
	if existing, err := s.reusableAttempt(ctx, order, provider); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	tx, err := adapter.CreateTransaction(ctx, providers.OrderInfo{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		Amount:       order.Total,
		Currency:     s.currency,
		CustomerName: order.FullName,
		Phone:        order.Phone,
		Email:        order.Email,
	})
	if err != nil {
		return nil, err
	}

	if err := s.persistAttempt(ctx, order, provider, tx); err != nil {
		return nil, err
	}

	return &Initiation{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Provider:    provider,
		Amount:      order.Total,
		Currency:    s.currency,
		PaymentURL:  tx.PaymentURL,
		PaymentCode: tx.PaymentCode,
		ExpiresAt:   tx.ExpiresAt,
	}, nil
}

func (s *service) Verify(ctx context.Context, userID, orderID uuid.UUID, provider enums.PaymentProvider) (*Status, error) {
	adapter, ok := s.adapters[provider]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment provider").
			WithDetails(map[string]any{"provider": provider})
	}

	order, err := s.loadOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	lookupRef, intentRef, attemptStatus, err := s.attemptRefs(ctx, order, provider)
	if err != nil {
		return nil, err
	}

	verification, err := adapter.VerifyTransaction(ctx, lookupRef)
	if err != nil {
		return nil, err
	}

	status := &Status{
		OrderID:       order.ID,
		OrderStatus:   order.Status,
		Provider:      provider,
		AttemptStatus: attemptStatus,
	}
	if !verification.Found {
		return status, nil
	}
	status.TransactionID = verification.TransactionID
	status.Message = verification.Message

	if verification.Success {
		result, err := s.Reconcile(ctx, ReconcileInput{
			Provider:      provider,
			Reference:     intentRef,
			Success:       true,
			TransactionID: verification.TransactionID,
			Message:       verification.Message,
		})
		if err != nil {
			return nil, err
		}
		if result.Outcome == OutcomeApplied || result.Outcome == OutcomeAlreadyProcessed {
			status.Paid = true
			status.AttemptStatus = enums.ProviderPaymentStatusPaid
			status.OrderStatus = enums.OrderStatusProcessing
		}
	}
	return status, nil
}

func (s *service) Reconcile(ctx context.Context, input ReconcileInput) (*ReconcileResult, error) {
	result, err := s.reconcile(ctx, input)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncReconcile(input.Provider.String(), string(result.Outcome))
	}
	return result, nil
}

func (s *service) reconcile(ctx context.Context, input ReconcileInput) (*ReconcileResult, error) {
	if input.Reference == "" {
		return &ReconcileResult{Outcome: OutcomeUnknownReference}, nil
	}

	intent, err := s.repo.FindIntentByReference(ctx, input.Reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ReconcileResult{Outcome: OutcomeUnknownReference}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}

	// A consumed intent already settled; any later verdict for the same
	// reference, success or denial, is a duplicate delivery.
	if intent.IsUsed {
		return &ReconcileResult{Outcome: OutcomeAlreadyProcessed, OrderID: intent.OrderID}, nil
	}

	if !input.Success {
		// A denial never consumes the intent; a later genuine success for
		// the same reference can still apply.
		if err := s.repo.UpdateAttemptStatus(ctx, input.Provider, input.Reference, enums.ProviderPaymentStatusFailed); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark attempt failed")
		}
		return &ReconcileResult{Outcome: OutcomeDenied, OrderID: intent.OrderID}, nil
	}

	result := &ReconcileResult{OrderID: intent.OrderID}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		consumed, err := repo.ConsumeIntent(ctx, intent.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume payment intent")
		}
		if !consumed {
			result.Outcome = OutcomeAlreadyProcessed
			return nil
		}

		payment := &models.Payment{
			ID:            uuid.New(),
			OrderID:       intent.OrderID,
			IntentID:      &intent.ID,
			Provider:      input.Provider,
			Method:        methodForProvider(input.Provider),
			Status:        enums.PaymentStatusCompleted,
			Amount:        intent.Amount,
			Currency:      intent.Currency,
			TransactionID: input.TransactionID,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if err := repo.UpdateAttemptStatus(ctx, input.Provider, input.Reference, enums.ProviderPaymentStatusPaid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark attempt paid")
		}
		if err := repo.SetOrderPaymentRef(ctx, intent.OrderID, payment.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set order payment ref")
		}

		moved, err := repo.MarkOrderProcessing(ctx, intent.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order status")
		}
		if moved {
			entry := &models.OrderTimeline{
				ID:      uuid.New(),
				OrderID: intent.OrderID,
				Status:  enums.OrderStatusProcessing,
				Note:    "payment received via " + input.Provider.String(),
			}
			if err := repo.CreateTimelineEntry(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create timeline entry")
			}
		}

		result.Outcome = OutcomeApplied
		result.PaymentID = payment.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExpireStale marks provider attempts whose intent window lapsed without a
// verdict. Intents stay unconsumed so a late genuine success still applies.
func (s *service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	intents, err := s.repo.ListExpiredIntents(ctx, now, expiredIntentBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired intents")
	}

	var errs error
	expired := 0
	for _, intent := range intents {
		if err := s.repo.UpdateAttemptStatus(ctx, intent.Provider, intent.IntentID, enums.ProviderPaymentStatusExpired); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire attempt %s: %w", intent.IntentID, err))
			continue
		}
		expired++
	}
	return expired, errs
}

func (s *service) loadOwnedOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != nil && *order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// reusableAttempt returns an open cash-network attempt for the order, or nil
// when a fresh charge should be opened.
func (s *service) reusableAttempt(ctx context.Context, order *models.Order, provider enums.PaymentProvider) (*Initiation, error) {
	now := time.Now()
	switch provider {
	case enums.PaymentProviderFawry:
		row, err := s.repo.FindFawryByOrder(ctx, order.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fawry attempt")
		}
		if row.Status != enums.ProviderPaymentStatusAwaiting || !row.ExpiresAt.After(now) {
			return nil, nil
		}
		return &Initiation{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Provider:    provider,
			Amount:      row.Amount,
			Currency:    row.Currency,
			PaymentCode: row.ReferenceNumber,
			ExpiresAt:   row.ExpiresAt,
		}, nil
	case enums.PaymentProviderAman:
		row, err := s.repo.FindAmanByOrder(ctx, order.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load aman attempt")
		}
		if row.Status != enums.ProviderPaymentStatusAwaiting || !row.ExpiresAt.After(now) {
			return nil, nil
		}
		return &Initiation{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Provider:    provider,
			Amount:      row.Amount,
			Currency:    row.Currency,
			PaymentCode: row.ReferenceNumber,
			ExpiresAt:   row.ExpiresAt,
		}, nil
	default:
		return nil, nil
	}
}

// persistAttempt writes the provider row and its single-use intent in one
// transaction. The intent reference always equals the provider-side key the
// callback will carry.
func (s *service) persistAttempt(ctx context.Context, order *models.Order, provider enums.PaymentProvider, tx *providers.Transaction) error {
	return s.tx.WithTx(ctx, func(dbTx *gorm.DB) error {
		repo := s.repo.WithTx(dbTx)

		var attemptID uuid.UUID
		switch provider {
		case enums.PaymentProviderPaymob:
			paymobOrderID, err := strconv.ParseInt(tx.ProviderRef, 10, 64)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse gateway order id")
			}
			row := &models.PaymobPayment{
				ID:            uuid.New(),
				OrderID:       order.ID,
				PaymobOrderID: paymobOrderID,
				AmountCents:   tx.AmountCents,
				Amount:        order.Total,
				Currency:      s.currency,
				IframeURL:     tx.PaymentURL,
				Status:        enums.ProviderPaymentStatusAwaiting,
				ExpiresAt:     tx.ExpiresAt,
			}
			if err := repo.CreatePaymobPayment(ctx, row); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create paymob attempt")
			}
			attemptID = row.ID
		case enums.PaymentProviderFawry:
			id, err := s.upsertFawryAttempt(ctx, repo, order, tx)
			if err != nil {
				return err
			}
			attemptID = id
		case enums.PaymentProviderAman:
			id, err := s.upsertAmanAttempt(ctx, repo, order, tx)
			if err != nil {
				return err
			}
			attemptID = id
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment provider")
		}

		intent := &models.PaymentIntent{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Provider:  provider,
			IntentID:  tx.ProviderRef,
			Amount:    order.Total,
			Currency:  s.currency,
			ExpiresAt: tx.ExpiresAt,
		}
		if err := repo.CreateIntent(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
		}

		// Last-attempt pointer only; reconciliation later repoints it at the
		// applied payment and never reads it.
		if err := repo.SetOrderPaymentRef(ctx, order.ID, attemptID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set order payment ref")
		}
		return nil
	})
}

// upsertFawryAttempt reuses the order's row when a prior attempt lapsed;
// merchant_ref is unique per order so lapsed attempts are refreshed in place.
func (s *service) upsertFawryAttempt(ctx context.Context, repo Repository, order *models.Order, tx *providers.Transaction) (uuid.UUID, error) {
	row, err := repo.FindFawryByOrder(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fawry attempt")
	}
	if row == nil {
		row = &models.FawryPayment{ID: uuid.New(), OrderID: order.ID}
	}
	row.MerchantRef = tx.MerchantRef
	row.ReferenceNumber = tx.ProviderRef
	row.Amount = order.Total
	row.Currency = s.currency
	row.Status = enums.ProviderPaymentStatusAwaiting
	row.ExpiresAt = tx.ExpiresAt
	if err := repo.SaveFawryPayment(ctx, row); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save fawry attempt")
	}
	return row.ID, nil
}

func (s *service) upsertAmanAttempt(ctx context.Context, repo Repository, order *models.Order, tx *providers.Transaction) (uuid.UUID, error) {
	row, err := repo.FindAmanByOrder(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load aman attempt")
	}
	if row == nil {
		row = &models.AmanPayment{ID: uuid.New(), OrderID: order.ID}
	}
	row.MerchantRef = tx.MerchantRef
	row.ReferenceNumber = tx.ProviderRef
	row.Amount = order.Total
	row.Currency = s.currency
	row.Status = enums.ProviderPaymentStatusAwaiting
	row.ExpiresAt = tx.ExpiresAt
	if err := repo.SaveAmanPayment(ctx, row); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save aman attempt")
	}
	return row.ID, nil
}

// attemptRefs resolves the provider lookup reference and the intent
// reference for the order's latest attempt.
func (s *service) attemptRefs(ctx context.Context, order *models.Order, provider enums.PaymentProvider) (string, string, enums.ProviderPaymentStatus, error) {
	switch provider {
	case enums.PaymentProviderPaymob:
		row, err := s.repo.FindPaymobByOrder(ctx, order.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", "", "", pkgerrors.New(pkgerrors.CodeNotFound, "no payment attempt for order")
			}
			return "", "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load paymob attempt")
		}
		return order.OrderNumber, strconv.FormatInt(row.PaymobOrderID, 10), row.Status, nil
	case enums.PaymentProviderFawry:
		row, err := s.repo.FindFawryByOrder(ctx, order.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", "", "", pkgerrors.New(pkgerrors.CodeNotFound, "no payment attempt for order")
			}
			return "", "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fawry attempt")
		}
		return row.MerchantRef, row.ReferenceNumber, row.Status, nil
	case enums.PaymentProviderAman:
		row, err := s.repo.FindAmanByOrder(ctx, order.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", "", "", pkgerrors.New(pkgerrors.CodeNotFound, "no payment attempt for order")
			}
			return "", "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load aman attempt")
		}
		return row.MerchantRef, row.ReferenceNumber, row.Status, nil
	default:
		return "", "", "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment provider")
	}
}

func methodForProvider(provider enums.PaymentProvider) enums.PaymentMethod {
	switch provider {
	case enums.PaymentProviderFawry:
		return enums.PaymentMethodFawry
	case enums.PaymentProviderAman:
		return enums.PaymentMethodAman
	default:
		return enums.PaymentMethodCard
	}
}

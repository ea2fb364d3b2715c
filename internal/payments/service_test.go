package payments

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/internal/providers"
	"github.com/rafal-store/rafal-backend/pkg/db/models"
	"github.com/rafal-store/rafal-backend/pkg/enums"
	pkgerrors "github.com/rafal-store/rafal-backend/pkg/errors"
)

func TestReconcileAppliesOnce(t *testing.T) {
	t.Parallel()

	repo := newMemPaymentsRepo()
	order := repo.seedOrder(enums.OrderStatusPending)
	repo.seedIntent(order.ID, enums.PaymentProviderFawry, "FRN-100", decimal.NewFromInt(350))
	svc := newTestPaymentsService(t, repo, nil)

	input := ReconcileInput{
		Provider:      enums.PaymentProviderFawry,
		Reference:     "FRN-100",
		Success:       true,
		TransactionID: "tx-1",
	}

	first, err := svc.Reconcile(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s", first.Outcome)
	}

	// The webhook and the polling path can both deliver the same verdict;
	// only the first application sticks.
	second, err := svc.Reconcile(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Outcome != OutcomeAlreadyProcessed {
		t.Fatalf("expected already processed, got %s", second.Outcome)
	}

	if len(repo.payments) != 1 {
		t.Fatalf("expected exactly one payment, got %d", len(repo.payments))
	}
	payment := repo.payments[0]
	if payment.Status != enums.PaymentStatusCompleted || !payment.Amount.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if got := repo.orders[order.ID].Status; got != enums.OrderStatusProcessing {
		t.Fatalf("expected processing order, got %s", got)
	}
	if len(repo.timeline) != 1 {
		t.Fatalf("expected one timeline entry, got %d", len(repo.timeline))
	}
	if repo.orders[order.ID].PaymentID == nil || *repo.orders[order.ID].PaymentID != payment.ID {
		t.Fatal("expected order payment ref to point at the applied payment")
	}
}

func TestReconcileDenialLeavesIntentOpen(t *testing.T) {
	t.Parallel()

	repo := newMemPaymentsRepo()
	order := repo.seedOrder(enums.OrderStatusPending)
	intent := repo.seedIntent(order.ID, enums.PaymentProviderAman, "ARN-5", decimal.NewFromInt(120))
	svc := newTestPaymentsService(t, repo, nil)

	denied, err := svc.Reconcile(context.Background(), ReconcileInput{
		Provider:  enums.PaymentProviderAman,
		Reference: "ARN-5",
		Success:   false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if denied.Outcome != OutcomeDenied {
		t.Fatalf("expected denied, got %s", denied.Outcome)
	}
	if repo.intents[intent.ID].IsUsed {
		t.Fatal("denial must not consume the intent")
	}
	if len(repo.payments) != 0 {
		t.Fatalf("expected no payment rows, got %d", len(repo.payments))
	}
	if got := repo.orders[order.ID].Status; got != enums.OrderStatusPending {
		t.Fatalf("expected order to stay pending, got %s", got)
	}

	// A later genuine success for the same reference still applies.
	applied, err := svc.Reconcile(context.Background(), ReconcileInput{
		Provider:  enums.PaymentProviderAman,
		Reference: "ARN-5",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied.Outcome != OutcomeApplied {
		t.Fatalf("expected applied after denial, got %s", applied.Outcome)
	}
}

func TestReconcileLateDenialAfterSuccess(t *testing.T) {
	t.Parallel()

	repo := newMemPaymentsRepo()
	order := repo.seedOrder(enums.OrderStatusPending)
	repo.seedIntent(order.ID, enums.PaymentProviderFawry, "FRN-200", decimal.NewFromInt(350))
	repo.fawry[order.ID] = &models.FawryPayment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		ReferenceNumber: "FRN-200",
		Status:          enums.ProviderPaymentStatusAwaiting,
	}
	svc := newTestPaymentsService(t, repo, nil)

	applied, err := svc.Reconcile(context.Background(), ReconcileInput{
		Provider:  enums.PaymentProviderFawry,
		Reference: "FRN-200",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s", applied.Outcome)
	}

	// Gateways retry; a stale denial can land after the charge settled.
	late, err := svc.Reconcile(context.Background(), ReconcileInput{
		Provider:  enums.PaymentProviderFawry,
		Reference: "FRN-200",
		Success:   false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if late.Outcome != OutcomeAlreadyProcessed {
		t.Fatalf("expected already processed for a late denial, got %s", late.Outcome)
	}
	if got := repo.fawry[order.ID].Status; got != enums.ProviderPaymentStatusPaid {
		t.Fatalf("late denial must not rewrite a paid attempt, got %s", got)
	}
	if len(repo.payments) != 1 {
		t.Fatalf("expected the single settled payment, got %d", len(repo.payments))
	}
}

func TestReconcileUnknownReference(t *testing.T) {
	t.Parallel()

	repo := newMemPaymentsRepo()
	svc := newTestPaymentsService(t, repo, nil)

	result, err := svc.Reconcile(context.Background(), ReconcileInput{
		Provider:  enums.PaymentProviderPaymob,
		Reference: "9999",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeUnknownReference {
		t.Fatalf("expected unknown reference, got %s", result.Outcome)
	}
	if len(repo.payments) != 0 {
		t.Fatal("unknown references must not create payments")
	}
}

func TestInitiateRejectsNonPendingOrder(t *testing.T) {
	t.Parallel()

	repo := newMemPaymentsRepo()
	order := repo.seedOrder(enums.OrderStatusProcessing)
	adapter := &stubAdapter{}
	svc := newTestPaymentsService(t, repo, map[enums.PaymentProvider]providers.Adapter{
		enums.PaymentProviderFawry: adapter,
	})

	userID := uuid.Nil
	if order.UserID != nil {
		userID = *order.UserID
	}
	_, err := svc.Initiate(context.Background(), userID, order.ID, enums.PaymentProviderFawry)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if adapter.createCalls != 0 {
		t.Fatal("no gateway call expected for a non-pending order")
	}
}

func TestInitiateReusesOpenCashAttempt(t *testing.T) {
	t.Parallel()

	repo := newMemPaymentsRepo()
	order := repo.seedOrder(enums.OrderStatusPending)
	repo.fawry[order.ID] = &models.FawryPayment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		MerchantRef:     "RAFAL-" + order.OrderNumber,
		ReferenceNumber: "FRN-1",
		Amount:          order.Total,
		Currency:        "EGP",
		Status:          enums.ProviderPaymentStatusAwaiting,
		ExpiresAt:       time.Now().Add(time.Hour),
	}
	adapter := &stubAdapter{}
	svc := newTestPaymentsService(t, repo, map[enums.PaymentProvider]providers.Adapter{
		enums.PaymentProviderFawry: adapter,
	})

	initiation, err := svc.Initiate(context.Background(), *order.UserID, order.ID, enums.PaymentProviderFawry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if initiation.PaymentCode != "FRN-1" {
		t.Fatalf("expected the open attempt's code, got %q", initiation.PaymentCode)
	}
	if adapter.createCalls != 0 {
		t.Fatal("expected no new gateway charge while an attempt is open")
	}
}

func TestInitiatePersistsAttemptAndIntent(t *testing.T) {
	t.Parallel()

	repo := newMemPaymentsRepo()
	order := repo.seedOrder(enums.OrderStatusPending)
	adapter := &stubAdapter{tx: &providers.Transaction{
		ProviderRef: "FRN-42",
		MerchantRef: "RAFAL-" + order.OrderNumber,
		PaymentCode: "FRN-42",
		ExpiresAt:   time.Now().Add(72 * time.Hour),
	}}
	svc := newTestPaymentsService(t, repo, map[enums.PaymentProvider]providers.Adapter{
		enums.PaymentProviderFawry: adapter,
	})

	initiation, err := svc.Initiate(context.Background(), *order.UserID, order.ID, enums.PaymentProviderFawry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if initiation.PaymentCode != "FRN-42" {
		t.Fatalf("unexpected payment code: %q", initiation.PaymentCode)
	}

	row := repo.fawry[order.ID]
	if row == nil || row.ReferenceNumber != "FRN-42" {
		t.Fatalf("expected persisted fawry attempt, got %+v", row)
	}

	var intent *models.PaymentIntent
	for _, candidate := range repo.intents {
		intent = candidate
	}
	if intent == nil || intent.IntentID != "FRN-42" || intent.IsUsed {
		t.Fatalf("expected open intent keyed on the reference, got %+v", intent)
	}

	stored := repo.orders[order.ID]
	if stored.PaymentID == nil || *stored.PaymentID != row.ID {
		t.Fatal("expected the last-attempt pointer on the order")
	}
}

func TestExpireStaleMarksAttempts(t *testing.T) {
	t.Parallel()

	repo := newMemPaymentsRepo()
	order := repo.seedOrder(enums.OrderStatusPending)
	intent := repo.seedIntent(order.ID, enums.PaymentProviderFawry, "FRN-7", order.Total)
	intent.ExpiresAt = time.Now().Add(-time.Hour)
	repo.fawry[order.ID] = &models.FawryPayment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		ReferenceNumber: "FRN-7",
		Status:          enums.ProviderPaymentStatusAwaiting,
	}
	svc := newTestPaymentsService(t, repo, nil)

	expired, err := svc.ExpireStale(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired attempt, got %d", expired)
	}
	if repo.fawry[order.ID].Status != enums.ProviderPaymentStatusExpired {
		t.Fatalf("expected expired attempt status, got %s", repo.fawry[order.ID].Status)
	}
	if repo.intents[intent.ID].IsUsed {
		t.Fatal("expiry must leave the intent unconsumed")
	}
}

func newTestPaymentsService(t *testing.T, repo Repository, adapters map[enums.PaymentProvider]providers.Adapter) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, adapters, "EGP", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubAdapter struct {
	tx          *providers.Transaction
	createCalls int
	verifyRes   providers.Verification
}

func (s *stubAdapter) CreateTransaction(ctx context.Context, order providers.OrderInfo) (*providers.Transaction, error) {
	s.createCalls++
	if s.tx == nil {
		return &providers.Transaction{ProviderRef: "REF", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	return s.tx, nil
}

func (s *stubAdapter) VerifyTransaction(ctx context.Context, providerRef string) (*providers.Verification, error) {
	res := s.verifyRes
	return &res, nil
}

type memPaymentsRepo struct {
	orders   map[uuid.UUID]*models.Order
	intents  map[uuid.UUID]*models.PaymentIntent
	payments []*models.Payment
	timeline []*models.OrderTimeline
	paymob   map[uuid.UUID]*models.PaymobPayment
	fawry    map[uuid.UUID]*models.FawryPayment
	aman     map[uuid.UUID]*models.AmanPayment
}

func newMemPaymentsRepo() *memPaymentsRepo {
	return &memPaymentsRepo{
		orders:  map[uuid.UUID]*models.Order{},
		intents: map[uuid.UUID]*models.PaymentIntent{},
		paymob:  map[uuid.UUID]*models.PaymobPayment{},
		fawry:   map[uuid.UUID]*models.FawryPayment{},
		aman:    map[uuid.UUID]*models.AmanPayment{},
	}
}

func (m *memPaymentsRepo) seedOrder(status enums.OrderStatus) *models.Order {
	userID := uuid.New()
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-TEST0001",
		UserID:      &userID,
		Status:      status,
		Total:       decimal.NewFromInt(350),
	}
	m.orders[order.ID] = order
	return order
}

func (m *memPaymentsRepo) seedIntent(orderID uuid.UUID, provider enums.PaymentProvider, reference string, amount decimal.Decimal) *models.PaymentIntent {
	intent := &models.PaymentIntent{
		ID:        uuid.New(),
		OrderID:   orderID,
		Provider:  provider,
		IntentID:  reference,
		Amount:    amount,
		Currency:  "EGP",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	m.intents[intent.ID] = intent
	return intent
}

func (m *memPaymentsRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memPaymentsRepo) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if order, ok := m.orders[orderID]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPaymentsRepo) MarkOrderProcessing(ctx context.Context, orderID uuid.UUID) (bool, error) {
	order, ok := m.orders[orderID]
	if !ok || order.Status != enums.OrderStatusPending {
		return false, nil
	}
	order.Status = enums.OrderStatusProcessing
	return true, nil
}

func (m *memPaymentsRepo) SetOrderPaymentRef(ctx context.Context, orderID, paymentID uuid.UUID) error {
	if order, ok := m.orders[orderID]; ok {
		id := paymentID
		order.PaymentID = &id
	}
	return nil
}

func (m *memPaymentsRepo) CreateTimelineEntry(ctx context.Context, entry *models.OrderTimeline) error {
	m.timeline = append(m.timeline, entry)
	return nil
}

func (m *memPaymentsRepo) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	m.intents[intent.ID] = intent
	return nil
}

func (m *memPaymentsRepo) FindIntentByReference(ctx context.Context, reference string) (*models.PaymentIntent, error) {
	for _, intent := range m.intents {
		if intent.IntentID == reference {
			return intent, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPaymentsRepo) ConsumeIntent(ctx context.Context, intentID uuid.UUID) (bool, error) {
	intent, ok := m.intents[intentID]
	if !ok || intent.IsUsed {
		return false, nil
	}
	intent.IsUsed = true
	return true, nil
}

func (m *memPaymentsRepo) ListExpiredIntents(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentIntent, error) {
	var out []models.PaymentIntent
	for _, intent := range m.intents {
		if !intent.IsUsed && intent.ExpiresAt.Before(cutoff) {
			out = append(out, *intent)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memPaymentsRepo) CreatePayment(ctx context.Context, payment *models.Payment) error {
	m.payments = append(m.payments, payment)
	return nil
}

func (m *memPaymentsRepo) FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	for _, payment := range m.payments {
		if payment.OrderID == orderID {
			return payment, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPaymentsRepo) CreatePaymobPayment(ctx context.Context, row *models.PaymobPayment) error {
	m.paymob[row.OrderID] = row
	return nil
}

func (m *memPaymentsRepo) FindPaymobByProviderOrder(ctx context.Context, paymobOrderID int64) (*models.PaymobPayment, error) {
	for _, row := range m.paymob {
		if row.PaymobOrderID == paymobOrderID {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPaymentsRepo) FindPaymobByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymobPayment, error) {
	if row, ok := m.paymob[orderID]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPaymentsRepo) CreateFawryPayment(ctx context.Context, row *models.FawryPayment) error {
	m.fawry[row.OrderID] = row
	return nil
}

func (m *memPaymentsRepo) SaveFawryPayment(ctx context.Context, row *models.FawryPayment) error {
	m.fawry[row.OrderID] = row
	return nil
}

func (m *memPaymentsRepo) FindFawryByOrder(ctx context.Context, orderID uuid.UUID) (*models.FawryPayment, error) {
	if row, ok := m.fawry[orderID]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPaymentsRepo) FindFawryByMerchantRef(ctx context.Context, merchantRef string) (*models.FawryPayment, error) {
	for _, row := range m.fawry {
		if row.MerchantRef == merchantRef {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPaymentsRepo) CreateAmanPayment(ctx context.Context, row *models.AmanPayment) error {
	m.aman[row.OrderID] = row
	return nil
}

func (m *memPaymentsRepo) SaveAmanPayment(ctx context.Context, row *models.AmanPayment) error {
	m.aman[row.OrderID] = row
	return nil
}

func (m *memPaymentsRepo) FindAmanByOrder(ctx context.Context, orderID uuid.UUID) (*models.AmanPayment, error) {
	if row, ok := m.aman[orderID]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPaymentsRepo) FindAmanByMerchantRef(ctx context.Context, merchantRef string) (*models.AmanPayment, error) {
	for _, row := range m.aman {
		if row.MerchantRef == merchantRef {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPaymentsRepo) UpdateAttemptStatus(ctx context.Context, provider enums.PaymentProvider, reference string, status enums.ProviderPaymentStatus) error {
	// Mirrors the repository's guard: a paid attempt never leaves paid.
	set := func(row *enums.ProviderPaymentStatus) {
		if status == enums.ProviderPaymentStatusFailed && *row == enums.ProviderPaymentStatusPaid {
			return
		}
		*row = status
	}
	switch provider {
	case enums.PaymentProviderFawry:
		for _, row := range m.fawry {
			if row.ReferenceNumber == reference {
				set(&row.Status)
			}
		}
	case enums.PaymentProviderAman:
		for _, row := range m.aman {
			if row.ReferenceNumber == reference {
				set(&row.Status)
			}
		}
	case enums.PaymentProviderPaymob:
		for _, row := range m.paymob {
			if strconv.FormatInt(row.PaymobOrderID, 10) == reference {
				set(&row.Status)
			}
		}
	}
	return nil
}

package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/internal/cart"
	"github.com/rafal-store/rafal-backend/pkg/config"
	"github.com/rafal-store/rafal-backend/pkg/db/models"
	"github.com/rafal-store/rafal-backend/pkg/enums"
	pkgerrors "github.com/rafal-store/rafal-backend/pkg/errors"
	"github.com/rafal-store/rafal-backend/pkg/logger"
	"github.com/rafal-store/rafal-backend/pkg/security"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"+20 100 123 4567", "+201001234567"},
		{"0100-123-4567", "01001234567"},
		{"  01001234567  ", "01001234567"},
		{"20+1001234567", "201001234567"},
		{"abc", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := normalizePhone(tc.in); got != tc.want {
			t.Fatalf("normalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRegisterCreatesUserAndDefaultAddress(t *testing.T) {
	t.Parallel()

	repo := newMemUsersRepo()
	svc := newTestUsersService(t, repo, &stubCartMerger{})

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Phone:     "+20 100 123 4567",
		Password:  "correct-horse",
		FirstName: "Sara",
		LastName:  "Adel",
		Street:    "12 Tahrir St",
		City:      "Cairo",
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens after registration")
	}

	user := repo.byPhone["+201001234567"]
	if user == nil {
		t.Fatal("expected the normalized phone as login key")
	}
	if user.Role != enums.UserRoleCustomer || !user.IsActive {
		t.Fatalf("unexpected user defaults: %+v", user)
	}

	if len(repo.addresses) != 1 {
		t.Fatalf("expected one default address, got %d", len(repo.addresses))
	}
	for _, addr := range repo.addresses {
		if !addr.IsDefault || addr.Type != enums.AddressTypeShipping || addr.City != "Cairo" {
			t.Fatalf("unexpected default address: %+v", addr)
		}
	}
}

func TestRegisterDuplicatePhone(t *testing.T) {
	t.Parallel()

	repo := newMemUsersRepo()
	repo.seedUser("+201001234567", "pw")
	svc := newTestUsersService(t, repo, nil)

	// A different raw spelling of the same number still collides.
	_, err := svc.Register(context.Background(), RegisterRequest{
		Phone:     "+20 100-123-4567",
		Password:  "whatever-pass",
		FirstName: "Sara",
	}, "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for duplicate phone, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()

	repo := newMemUsersRepo()
	repo.seedUser("+201001234567", "right-password")
	svc := newTestUsersService(t, repo, nil)

	_, err := svc.Login(context.Background(), LoginRequest{
		Phone:    "+201001234567",
		Password: "wrong-password",
	}, "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginUnknownPhoneSameError(t *testing.T) {
	t.Parallel()

	repo := newMemUsersRepo()
	svc := newTestUsersService(t, repo, nil)

	_, err := svc.Login(context.Background(), LoginRequest{
		Phone:    "+209999999999",
		Password: "whatever-pass",
	}, "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	// The message must not reveal whether the phone exists.
	if typed.Error() == "" || typed.Message() != invalidCredentialsMessage {
		t.Fatalf("unexpected message: %q", typed.Message())
	}
}

func TestLoginMergesSessionCart(t *testing.T) {
	t.Parallel()

	repo := newMemUsersRepo()
	user := repo.seedUser("+201001234567", "right-password")
	merger := &stubCartMerger{}
	svc := newTestUsersService(t, repo, merger)

	_, err := svc.Login(context.Background(), LoginRequest{
		Phone:    "+201001234567",
		Password: "right-password",
	}, "guest-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merger.calls != 1 || merger.lastUserID != user.ID || merger.lastSessionKey != "guest-key" {
		t.Fatalf("expected one merge for the session cart, got %+v", merger)
	}
}

func TestLoginMergeFailureDoesNotBlockLogin(t *testing.T) {
	t.Parallel()

	repo := newMemUsersRepo()
	repo.seedUser("+201001234567", "right-password")
	merger := &stubCartMerger{err: pkgerrors.New(pkgerrors.CodeDependency, "redis down")}
	svc := newTestUsersService(t, repo, merger)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Phone:    "+201001234567",
		Password: "right-password",
	}, "guest-key")
	if err != nil {
		t.Fatalf("login must survive a merge failure, got %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected tokens despite the merge failure")
	}
}

func newTestUsersService(t *testing.T, repo Repository, carts cartMerger) Service {
	t.Helper()
	jwtCfg := config.JWTConfig{
		Secret:                 "test-secret",
		Issuer:                 "rafal-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
	passwordCfg := config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
	svc, err := NewService(repo, stubTxRunner{}, &stubSessionManager{}, carts, jwtCfg, passwordCfg, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubSessionManager struct{}

func (stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	return "refresh-" + accessID, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "access-id", "refresh-token", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error { return nil }

type stubCartMerger struct {
	calls          int
	lastUserID     uuid.UUID
	lastSessionKey string
	err            error
}

func (s *stubCartMerger) Merge(ctx context.Context, userID uuid.UUID, sessionKey string) (*cart.Summary, error) {
	s.calls++
	s.lastUserID = userID
	s.lastSessionKey = sessionKey
	if s.err != nil {
		return nil, s.err
	}
	return &cart.Summary{CartID: uuid.New()}, nil
}

type memUsersRepo struct {
	byPhone   map[string]*models.User
	byID      map[uuid.UUID]*models.User
	addresses map[uuid.UUID]*models.Address
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{
		byPhone:   map[string]*models.User{},
		byID:      map[uuid.UUID]*models.User{},
		addresses: map[uuid.UUID]*models.Address{},
	}
}

func (m *memUsersRepo) seedUser(phone, password string) *models.User {
	hash, err := security.HashPassword(password, config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	if err != nil {
		panic(err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Phone:        phone,
		PasswordHash: hash,
		FirstName:    "Sara",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	m.byPhone[phone] = user
	m.byID[user.ID] = user
	return user
}

func (m *memUsersRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	m.byPhone[user.Phone] = user
	m.byID[user.ID] = user
	return user, nil
}

func (m *memUsersRepo) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	if user, ok := m.byPhone[phone]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := m.byID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsersRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if user, ok := m.byID[id]; ok {
		stamp := at
		user.LastLoginAt = &stamp
	}
	return nil
}

func (m *memUsersRepo) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (m *memUsersRepo) CreateAddress(ctx context.Context, address *models.Address) (*models.Address, error) {
	m.addresses[address.ID] = address
	return address, nil
}

func (m *memUsersRepo) ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var out []models.Address
	for _, addr := range m.addresses {
		if addr.UserID == userID {
			out = append(out, *addr)
		}
	}
	return out, nil
}

func (m *memUsersRepo) FindAddress(ctx context.Context, addressID uuid.UUID) (*models.Address, error) {
	if addr, ok := m.addresses[addressID]; ok {
		return addr, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsersRepo) SaveAddress(ctx context.Context, address *models.Address) error {
	m.addresses[address.ID] = address
	return nil
}

func (m *memUsersRepo) DeleteAddress(ctx context.Context, addressID uuid.UUID) error {
	delete(m.addresses, addressID)
	return nil
}

func (m *memUsersRepo) ClearDefaultAddresses(ctx context.Context, userID uuid.UUID, addressType enums.AddressType) error {
	for _, addr := range m.addresses {
		if addr.UserID == userID && addr.Type == addressType {
			addr.IsDefault = false
		}
	}
	return nil
}

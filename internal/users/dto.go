package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/rafal-store/rafal-backend/pkg/db/models"
	"github.com/rafal-store/rafal-backend/pkg/enums"
)

// RegisterRequest is the signup payload. Street and city are optional; when
// both are present a default shipping address is created alongside the user.
type RegisterRequest struct {
	Phone       string  `json:"phone" validate:"required"`
	Password    string  `json:"password" validate:"required,min=8"`
	FirstName   string  `json:"first_name" validate:"required"`
	LastName    string  `json:"last_name"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Street      string  `json:"street"`
	City        string  `json:"city"`
	Governorate string  `json:"governorate"`
}

// LoginRequest carries phone-based credentials.
type LoginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register, login, and refresh.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         View   `json:"user"`
}

// UpdateProfileRequest holds the mutable profile fields; nil means unchanged.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
}

// AddressRequest creates or replaces a saved address.
type AddressRequest struct {
	Type        enums.AddressType `json:"type"`
	FullName    string            `json:"full_name" validate:"required"`
	Phone       string            `json:"phone" validate:"required"`
	Street      string            `json:"street" validate:"required"`
	City        string            `json:"city" validate:"required"`
	Governorate string            `json:"governorate"`
	IsDefault   bool              `json:"is_default"`
}

// View is the public read model for a user.
type View struct {
	ID        uuid.UUID      `json:"id"`
	Phone     string         `json:"phone"`
	Email     *string        `json:"email,omitempty"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name,omitempty"`
	Role      enums.UserRole `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

// FromModel maps a user model to its read model.
func FromModel(user *models.User) View {
	return View{
		ID:        user.ID,
		Phone:     user.Phone,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// AddressView is the public read model for a saved address.
type AddressView struct {
	ID          uuid.UUID         `json:"id"`
	Type        enums.AddressType `json:"type"`
	FullName    string            `json:"full_name"`
	Phone       string            `json:"phone"`
	Street      string            `json:"street"`
	City        string            `json:"city"`
	Governorate string            `json:"governorate,omitempty"`
	IsDefault   bool              `json:"is_default"`
}

func newAddressView(address *models.Address) AddressView {
	return AddressView{
		ID:          address.ID,
		Type:        address.Type,
		FullName:    address.FullName,
		Phone:       address.Phone,
		Street:      address.Street,
		City:        address.City,
		Governorate: address.Governorate,
		IsDefault:   address.IsDefault,
	}
}

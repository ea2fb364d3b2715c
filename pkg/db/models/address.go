package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rafal-store/rafal-backend/pkg/enums"
)

// Address is a saved delivery destination. Registration creates a default
// shipping address from the signup fields.
type Address struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Type        enums.AddressType `gorm:"column:type;not null;default:'shipping'"`
	FullName    string            `gorm:"column:full_name;not null"`
	Phone       string            `gorm:"column:phone;not null"`
	Street      string            `gorm:"column:street;not null"`
	City        string            `gorm:"column:city;not null"`
	Governorate string            `gorm:"column:governorate"`
	IsDefault   bool              `gorm:"column:is_default;not null;default:false"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

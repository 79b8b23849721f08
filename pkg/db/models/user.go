package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printdock/printdock-backend/pkg/enums"
)

// User is a storefront customer or admin account.
type User struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Email        string           `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	CompanyName  string           `gorm:"column:company_name;not null"`
	ContactName  string           `gorm:"column:contact_name;not null;default:''"`
	Phone        *string          `gorm:"column:phone"`
	Role         enums.UserRole   `gorm:"column:role;type:text;not null;default:user"`
	Status       enums.UserStatus `gorm:"column:status;type:text;not null;default:pending"`
	Balance      decimal.Decimal  `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	PhotoURL     *string          `gorm:"column:photo_url"`
	LastLoginAt  *time.Time       `gorm:"column:last_login_at"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

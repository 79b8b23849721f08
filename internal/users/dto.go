package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printdock/printdock-backend/pkg/db/models"
	"github.com/printdock/printdock-backend/pkg/enums"
	"github.com/printdock/printdock-backend/pkg/pagination"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID        `json:"id"`
	Email       string           `json:"email"`
	CompanyName string           `json:"company_name"`
	ContactName string           `json:"contact_name,omitempty"`
	Phone       *string          `json:"phone,omitempty"`
	Role        enums.UserRole   `json:"role"`
	Status      enums.UserStatus `json:"status"`
	Balance     decimal.Decimal  `json:"balance"`
	PhotoURL    *string          `json:"photo_url,omitempty"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	CompanyName  string
	ContactName  string
	Phone        *string
	Role         enums.UserRole
	Status       enums.UserStatus
}

// ProfileUpdate carries the user-editable profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	CompanyName *string
	ContactName *string
	Phone       *string
	PhotoURL    *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		CompanyName: u.CompanyName,
		ContactName: u.ContactName,
		Phone:       u.Phone,
		Role:        u.Role,
		Status:      u.Status,
		Balance:     u.Balance,
		PhotoURL:    u.PhotoURL,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	status := c.Status
	if status == "" {
		status = enums.UserStatusPending
	}
	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		CompanyName:  c.CompanyName,
		ContactName:  c.ContactName,
		Phone:        c.Phone,
		Role:         role,
		Status:       status,
		Balance:      decimal.Zero,
	}
}

func (p ProfileUpdate) columns() map[string]any {
	updates := map[string]any{}
	if p.CompanyName != nil {
		updates["company_name"] = *p.CompanyName
	}
	if p.ContactName != nil {
		updates["contact_name"] = *p.ContactName
	}
	if p.Phone != nil {
		updates["phone"] = *p.Phone
	}
	if p.PhotoURL != nil {
		updates["photo_url"] = *p.PhotoURL
	}
	return updates
}

// CursorOf keys a user row for cursor pagination.
func CursorOf(u models.User) pagination.Cursor {
	return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
}

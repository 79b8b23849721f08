package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printdock/printdock-backend/pkg/enums"
)

// UserRegisteredEvent announces a new account waiting for approval.
type UserRegisteredEvent struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	CompanyName string    `json:"company_name"`
}

// UserDecisionEvent is emitted when an admin approves or rejects an account.
type UserDecisionEvent struct {
	UserID  uuid.UUID        `json:"user_id"`
	Email   string           `json:"email"`
	Status  enums.UserStatus `json:"status"`
	Reason  string           `json:"reason,omitempty"`
	ActorID uuid.UUID        `json:"actor_id"`
}

// PasswordResetRequestedEvent carries the one-time token to the mailer.
type PasswordResetRequestedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OrderCreatedEvent is emitted once per placement and lists every order row it created.
type OrderCreatedEvent struct {
	UserID        uuid.UUID       `json:"user_id"`
	OrderIDs      []uuid.UUID     `json:"order_ids"`
	BatchImportID *uuid.UUID      `json:"batch_import_id,omitempty"`
	Total         decimal.Decimal `json:"total"`
}

// OrderCancelledEvent is emitted when a pending order is cancelled and refunded.
type OrderCancelledEvent struct {
	OrderID      uuid.UUID       `json:"order_id"`
	UserID       uuid.UUID       `json:"user_id"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	CancelledAt  time.Time       `json:"cancelled_at"`
}

// OrderStatusChangedEvent is emitted on admin fulfillment updates.
type OrderStatusChangedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	UserID   uuid.UUID         `json:"user_id"`
	Previous enums.OrderStatus `json:"previous"`
	Status   enums.OrderStatus `json:"status"`
}

// BatchImportCompletedEvent summarises a finished CSV import.
type BatchImportCompletedEvent struct {
	BatchImportID uuid.UUID               `json:"batch_import_id"`
	UserID        uuid.UUID               `json:"user_id"`
	Status        enums.BatchImportStatus `json:"status"`
	OrderCount    int                     `json:"order_count"`
	Total         decimal.Decimal         `json:"total"`
}

// DepositEvent covers deposit requests and their admin decisions.
type DepositEvent struct {
	TransactionID uuid.UUID               `json:"transaction_id"`
	UserID        uuid.UUID               `json:"user_id"`
	Amount        decimal.Decimal         `json:"amount"`
	PaymentMethod enums.PaymentMethod     `json:"payment_method"`
	Status        enums.TransactionStatus `json:"status"`
	Reason        string                  `json:"reason,omitempty"`
}

package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printdock/printdock-backend/pkg/db/models"
	"github.com/printdock/printdock-backend/pkg/enums"
	"github.com/printdock/printdock-backend/pkg/pagination"
)

// TransactionDTO is the API shape of a balance movement.
type TransactionDTO struct {
	ID              uuid.UUID                `json:"id"`
	UserID          uuid.UUID                `json:"user_id"`
	Type            enums.TransactionType    `json:"type"`
	Amount          decimal.Decimal          `json:"amount"`
	Status          enums.TransactionStatus  `json:"status"`
	PaymentMethod   enums.PaymentMethod      `json:"payment_method"`
	PaymentDetails  map[string]string        `json:"payment_details"`
	PaymentProofURL *string                  `json:"payment_proof_url,omitempty"`
	OrderID         *uuid.UUID               `json:"order_id,omitempty"`
	AdminNotes      []models.TransactionNote `json:"admin_notes"`
	UserNotes       []models.TransactionNote `json:"user_notes"`
	ProcessedBy     *uuid.UUID               `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time               `json:"processed_at,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// DepositRequest is a customer's request to top up their balance.
type DepositRequest struct {
	Amount          *decimal.Decimal    `json:"amount" validate:"required"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method" validate:"required"`
	PaymentDetails  map[string]string   `json:"payment_details"`
	PaymentProofURL *string             `json:"payment_proof_url,omitempty"`
}

// NoteRequest appends one entry to a note thread.
type NoteRequest struct {
	Text string `json:"text" validate:"required"`
}

// DecisionRequest carries the optional admin reason for a deposit decision.
type DecisionRequest struct {
	Reason string `json:"reason"`
}

// ListParams filters transaction listings. UserID is forced for customers.
type ListParams struct {
	pagination.Params
	UserID *uuid.UUID
	Type   *enums.TransactionType
	Status *enums.TransactionStatus
}

// Actor identifies who is performing an operation.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

func FromModel(t *models.Transaction) *TransactionDTO {
	if t == nil {
		return nil
	}
	details := t.PaymentDetails.Get()
	if details == nil {
		details = map[string]string{}
	}
	return &TransactionDTO{
		ID:              t.ID,
		UserID:          t.UserID,
		Type:            t.Type,
		Amount:          t.Amount,
		Status:          t.Status,
		PaymentMethod:   t.PaymentMethod,
		PaymentDetails:  details,
		PaymentProofURL: t.PaymentProofURL,
		OrderID:         t.OrderID,
		AdminNotes:      notes(t.AdminNotes.Get()),
		UserNotes:       notes(t.UserNotes.Get()),
		ProcessedBy:     t.ProcessedBy,
		ProcessedAt:     t.ProcessedAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func cursorOf(t models.Transaction) pagination.Cursor {
	return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
}

func notes(in []models.TransactionNote) []models.TransactionNote {
	if in == nil {
		return []models.TransactionNote{}
	}
	return in
}

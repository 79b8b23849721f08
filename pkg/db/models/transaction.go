package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/printdock/printdock-backend/pkg/db/types"
	"github.com/printdock/printdock-backend/pkg/enums"
)

// TransactionNote is one entry in a transaction's note thread.
type TransactionNote struct {
	Text       string           `json:"text"`
	CreatedAt  time.Time        `json:"created_at"`
	AuthorType enums.NoteAuthor `json:"author_type"`
}

// Transaction records a deposit, order payment, or refund against a user balance.
type Transaction struct {
	ID              uuid.UUID                        `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID                        `gorm:"column:user_id;type:uuid;not null;index"`
	Type            enums.TransactionType            `gorm:"column:type;type:text;not null"`
	Amount          decimal.Decimal                  `gorm:"column:amount;type:numeric(12,2);not null"`
	Status          enums.TransactionStatus          `gorm:"column:status;type:text;not null"`
	PaymentMethod   enums.PaymentMethod              `gorm:"column:payment_method;type:text;not null"`
	PaymentDetails  dbtypes.JSON[map[string]string]  `gorm:"column:payment_details;type:jsonb;not null"`
	PaymentProofURL *string                          `gorm:"column:payment_proof_url"`
	OrderID         *uuid.UUID                       `gorm:"column:order_id;type:uuid;index"`
	AdminNotes      dbtypes.JSON[[]TransactionNote]  `gorm:"column:admin_notes;type:jsonb;not null"`
	UserNotes       dbtypes.JSON[[]TransactionNote]  `gorm:"column:user_notes;type:jsonb;not null"`
	ProcessedBy     *uuid.UUID                       `gorm:"column:processed_by;type:uuid"`
	ProcessedAt     *time.Time                       `gorm:"column:processed_at"`
	CreatedAt       time.Time                        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                        `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

package batchimports

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printdock/printdock-backend/pkg/db/models"
	"github.com/printdock/printdock-backend/pkg/enums"
	"github.com/printdock/printdock-backend/pkg/pagination"
)

// BatchImportDTO is the API shape of a CSV import.
type BatchImportDTO struct {
	ID         uuid.UUID               `json:"id"`
	UserID     uuid.UUID               `json:"user_id"`
	FileName   string                  `json:"file_name"`
	OrderCount int                     `json:"order_count"`
	TotalPrice decimal.Decimal         `json:"total_price"`
	Status     enums.BatchImportStatus `json:"status"`
	Error      *string                 `json:"error,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// ListParams filters batch import listings. UserID is forced for customers.
type ListParams struct {
	pagination.Params
	UserID *uuid.UUID
}

// Actor identifies the caller.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

func FromModel(b *models.BatchImport) *BatchImportDTO {
	if b == nil {
		return nil
	}
	return &BatchImportDTO{
		ID:         b.ID,
		UserID:     b.UserID,
		FileName:   b.FileName,
		OrderCount: b.OrderCount,
		TotalPrice: b.TotalPrice,
		Status:     b.Status,
		Error:      b.Error,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func cursorOf(b models.BatchImport) pagination.Cursor {
	return pagination.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
}

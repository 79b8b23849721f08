package batchimports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printdock/printdock-backend/pkg/db/models"
	"github.com/printdock/printdock-backend/pkg/enums"
	"github.com/printdock/printdock-backend/pkg/pagination"
)

// Repository persists batch import headers.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, batch *models.BatchImport) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BatchImport, error) {
	var batch models.BatchImport
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *Repository) List(ctx context.Context, params ListParams, cursor *pagination.Cursor) ([]models.BatchImport, error) {
	query := r.db.WithContext(ctx).Model(&models.BatchImport{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	var rows []models.BatchImport
	err := pagination.Apply(query, cursor).
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

// Complete records the outcome of a successful import.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, count int, total decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.BatchImport{}).
		Where("id = ? AND status = ?", id, enums.BatchImportProcessing).
		Updates(map[string]any{
			"status":      enums.BatchImportCompleted,
			"order_count": count,
			"total_price": total,
		}).Error
}

// Fail marks a processing import as failed with reason.
func (r *Repository) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.BatchImport{}).
		Where("id = ? AND status = ?", id, enums.BatchImportProcessing).
		Updates(map[string]any{"status": enums.BatchImportFailed, "error": reason}).Error
}

// FailStaleProcessing fails imports left in processing since before cutoff,
// which only happens when the API process died mid-import.
func (r *Repository) FailStaleProcessing(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.BatchImport{}).
		Where("status = ? AND created_at < ?", enums.BatchImportProcessing, cutoff).
		Updates(map[string]any{"status": enums.BatchImportFailed, "error": reason})
	return res.RowsAffected, res.Error
}

package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/printdock/printdock-backend/pkg/db/models"
	"github.com/printdock/printdock-backend/pkg/enums"
	"github.com/printdock/printdock-backend/pkg/pagination"
)

// ErrStatusUnchanged is returned when a conditional status update matched no row.
var ErrStatusUnchanged = errors.New("order status unchanged")

// Repository persists order rows.
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

// CreateMany inserts rows in one statement and fills their ids.
func (r *Repository) CreateMany(ctx context.Context, rows []models.Order) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) List(ctx context.Context, params ListParams, cursor *pagination.Cursor) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.BatchImportID != nil {
		query = query.Where("batch_import_id = ?", *params.BatchImportID)
	}
	var rows []models.Order
	err := pagination.Apply(query, cursor).
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

// Transition moves an order from current to next, guarding against a
// concurrent writer that changed the status first.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, current, next enums.OrderStatus, paid bool, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, current).
		Updates(map[string]any{"status": next, "is_paid": paid, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusUnchanged
	}
	return nil
}

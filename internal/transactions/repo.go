package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/printdock/printdock-backend/pkg/db/models"
	dbtypes "github.com/printdock/printdock-backend/pkg/db/types"
	"github.com/printdock/printdock-backend/pkg/enums"
	"github.com/printdock/printdock-backend/pkg/pagination"
)

// ErrStatusUnchanged is returned when a conditional status flip matched no row.
var ErrStatusUnchanged = errors.New("transaction status unchanged")

// NoteThread selects which note column an append targets.
type NoteThread string

const (
	ThreadAdmin NoteThread = "admin_notes"
	ThreadUser  NoteThread = "user_notes"
)

// Repository persists balance transactions.
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

func (r *Repository) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.PaymentDetails.Get() == nil {
		txn.PaymentDetails = dbtypes.NewJSON(map[string]string{})
	}
	if txn.AdminNotes.Get() == nil {
		txn.AdminNotes = dbtypes.NewJSON([]models.TransactionNote{})
	}
	if txn.UserNotes.Get() == nil {
		txn.UserNotes = dbtypes.NewJSON([]models.TransactionNote{})
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

// RecordPayment writes a completed payment or refund tied to an order.
func (r *Repository) RecordPayment(ctx context.Context, userID, orderID uuid.UUID, kind enums.TransactionType, amount decimal.Decimal, at time.Time) (*models.Transaction, error) {
	txn := &models.Transaction{
		UserID:        userID,
		Type:          kind,
		Amount:        amount,
		Status:        enums.TransactionCompleted,
		PaymentMethod: enums.PaymentBalance,
		OrderID:       &orderID,
		ProcessedAt:   &at,
	}
	if err := r.Create(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&txn, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListByOrder returns every transaction referencing orderID, oldest first.
func (r *Repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) List(ctx context.Context, params ListParams, cursor *pagination.Cursor) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	var rows []models.Transaction
	err := pagination.Apply(query, cursor).
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

// Decide flips a pending transaction to next. Only one caller can win the flip,
// so the balance side effect that follows runs once.
func (r *Repository) Decide(ctx context.Context, id uuid.UUID, next enums.TransactionStatus, processedBy uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, enums.TransactionPending).
		Updates(map[string]any{
			"status":       next,
			"processed_by": processedBy,
			"processed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusUnchanged
	}
	return nil
}

// AppendNote adds note to the chosen thread. Callers hold the row lock from
// FindByIDForUpdate so concurrent appends do not drop entries.
func (r *Repository) AppendNote(ctx context.Context, txn *models.Transaction, thread NoteThread, note models.TransactionNote) error {
	var column dbtypes.JSON[[]models.TransactionNote]
	switch thread {
	case ThreadAdmin:
		txn.AdminNotes = dbtypes.NewJSON(append(txn.AdminNotes.Get(), note))
		column = txn.AdminNotes
	case ThreadUser:
		txn.UserNotes = dbtypes.NewJSON(append(txn.UserNotes.Get(), note))
		column = txn.UserNotes
	default:
		return errors.New("unknown note thread " + string(thread))
	}
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", txn.ID).
		Updates(map[string]any{string(thread): column, "updated_at": note.CreatedAt}).Error
}

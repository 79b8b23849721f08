package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printdock/printdock-backend/internal/users"
	"github.com/printdock/printdock-backend/pkg/db/models"
	dbtypes "github.com/printdock/printdock-backend/pkg/db/types"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/logger"
	"github.com/printdock/printdock-backend/pkg/metrics"
	"github.com/printdock/printdock-backend/pkg/outbox"
	"github.com/printdock/printdock-backend/pkg/outbox/payloads"
	"github.com/printdock/printdock-backend/pkg/pagination"
	"github.com/printdock/printdock-backend/pkg/types"
)

const maxNoteLength = 2000

// Service covers customer deposits and the admin approval workflow.
type Service interface {
	Deposit(ctx context.Context, userID uuid.UUID, req DepositRequest) (*TransactionDTO, error)
	List(ctx context.Context, params ListParams) (*types.Page[TransactionDTO], error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*TransactionDTO, error)
	AddNote(ctx context.Context, actor Actor, id uuid.UUID, req NoteRequest) (*TransactionDTO, error)
	Approve(ctx context.Context, adminID, id uuid.UUID, req DecisionRequest) (*TransactionDTO, error)
	Reject(ctx context.Context, adminID, id uuid.UUID, req DecisionRequest) (*TransactionDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles transaction service dependencies.
type ServiceParams struct {
	DB       txRunner
	Repo     *Repository
	UserRepo *users.Repository
	Outbox   outbox.Emitter
	Metrics  *metrics.StoreMetrics
	Logger   *logger.Logger
}

type service struct {
	db      txRunner
	repo    *Repository
	users   *users.Repository
	outbox  outbox.Emitter
	metrics *metrics.StoreMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("transaction repository is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		db:      params.DB,
		repo:    params.Repo,
		users:   params.UserRepo,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Deposit(ctx context.Context, userID uuid.UUID, req DepositRequest) (*TransactionDTO, error) {
	if req.Amount == nil || !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount supports at most two decimal places")
	}
	if !req.PaymentMethod.IsDepositMethod() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}

	txn := &models.Transaction{
		UserID:          userID,
		Type:            enums.TransactionDeposit,
		Amount:          *req.Amount,
		Status:          enums.TransactionPending,
		PaymentMethod:   req.PaymentMethod,
		PaymentDetails:  dbtypes.NewJSON(req.PaymentDetails),
		PaymentProofURL: trimmed(req.PaymentProofURL),
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.users.WithTx(tx).FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		if user.Status != enums.UserStatusActive {
			return pkgerrors.New(pkgerrors.CodeForbidden, "account is not active")
		}
		if err := s.repo.WithTx(tx).Create(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create deposit")
		}
		return s.emitDeposit(ctx, tx, enums.EventDepositRequested, txn, userID, enums.UserRoleUser, "")
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Deposit(string(enums.TransactionPending))
	return FromModel(txn), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*types.Page[TransactionDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, params, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	rows, next := pagination.Trim(rows, params.Limit, cursorOf)
	items := make([]TransactionDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &types.Page[TransactionDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*TransactionDTO, error) {
	txn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindError(err)
	}
	if !actor.Admin && txn.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return FromModel(txn), nil
}

// AddNote appends to the user thread for customers and the admin thread for admins.
func (s *service) AddNote(ctx context.Context, actor Actor, id uuid.UUID, req NoteRequest) (*TransactionDTO, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note text is required")
	}
	if len(text) > maxNoteLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("note exceeds %d characters", maxNoteLength))
	}
	thread, author := ThreadUser, enums.NoteAuthorUser
	if actor.Admin {
		thread, author = ThreadAdmin, enums.NoteAuthorAdmin
	}

	var out *models.Transaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapFindError(err)
		}
		if !actor.Admin && txn.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		note := models.TransactionNote{Text: text, CreatedAt: s.now(), AuthorType: author}
		if err := repo.AppendNote(ctx, txn, thread, note); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append note")
		}
		out = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(out), nil
}

// Approve credits a pending deposit. The status flip is conditional, so a
// second approval fails with STATE_CONFLICT instead of crediting twice.
func (s *service) Approve(ctx context.Context, adminID, id uuid.UUID, req DecisionRequest) (*TransactionDTO, error) {
	return s.decide(ctx, adminID, id, enums.TransactionApproved, req.Reason)
}

// Reject closes a pending deposit and records the reason as an admin note.
func (s *service) Reject(ctx context.Context, adminID, id uuid.UUID, req DecisionRequest) (*TransactionDTO, error) {
	return s.decide(ctx, adminID, id, enums.TransactionRejected, req.Reason)
}

func (s *service) decide(ctx context.Context, adminID, id uuid.UUID, next enums.TransactionStatus, reason string) (*TransactionDTO, error) {
	reason = strings.TrimSpace(reason)
	var out *models.Transaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapFindError(err)
		}
		if txn.Type != enums.TransactionDeposit {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only deposits can be approved or rejected")
		}

		now := s.now()
		if err := repo.Decide(ctx, id, next, adminID, now); err != nil {
			if errors.Is(err, ErrStatusUnchanged) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction has already been processed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update transaction status")
		}
		txn.Status = next
		txn.ProcessedBy = &adminID
		txn.ProcessedAt = &now

		if next == enums.TransactionApproved {
			if err := s.users.WithTx(tx).Credit(ctx, txn.UserID, txn.Amount); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit balance")
			}
		}
		if reason != "" {
			note := models.TransactionNote{Text: reason, CreatedAt: now, AuthorType: enums.NoteAuthorAdmin}
			if err := repo.AppendNote(ctx, txn, ThreadAdmin, note); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append decision note")
			}
		}

		eventType := enums.EventDepositApproved
		if next == enums.TransactionRejected {
			eventType = enums.EventDepositRejected
		}
		if err := s.emitDeposit(ctx, tx, eventType, txn, adminID, enums.UserRoleAdmin, reason); err != nil {
			return err
		}
		out = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Deposit(string(next))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id": id.String(),
		"status":         string(next),
	}), "deposit decided")
	return FromModel(out), nil
}

func (s *service) emitDeposit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, txn *models.Transaction, actorID uuid.UUID, role enums.UserRole, reason string) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   txn.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: role},
		Data: payloads.DepositEvent{
			TransactionID: txn.ID,
			UserID:        txn.UserID,
			Amount:        txn.Amount,
			PaymentMethod: txn.PaymentMethod,
			Status:        txn.Status,
			Reason:        reason,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit deposit event")
	}
	return nil
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load transaction")
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

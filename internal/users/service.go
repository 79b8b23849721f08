package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/logger"
	"github.com/printdock/printdock-backend/pkg/outbox"
	"github.com/printdock/printdock-backend/pkg/outbox/payloads"
	"github.com/printdock/printdock-backend/pkg/pagination"
	"github.com/printdock/printdock-backend/pkg/types"
)

// AdminService backs the account approval console.
type AdminService interface {
	List(ctx context.Context, params ListParams) (*types.Page[UserDTO], error)
	Approve(ctx context.Context, adminID, userID uuid.UUID) (*UserDTO, error)
	Reject(ctx context.Context, adminID, userID uuid.UUID, reason string) (*UserDTO, error)
	SetStatus(ctx context.Context, adminID, userID uuid.UUID, status enums.UserStatus) (*UserDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AdminServiceParams bundles admin service dependencies.
type AdminServiceParams struct {
	DB     txRunner
	Repo   *Repository
	Outbox outbox.Emitter
	Logger *logger.Logger
}

type adminService struct {
	db     txRunner
	repo   *Repository
	outbox outbox.Emitter
	logg   *logger.Logger
}

func NewAdminService(params AdminServiceParams) (AdminService, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &adminService{db: params.DB, repo: params.Repo, outbox: params.Outbox, logg: logg}, nil
}

func (s *adminService) List(ctx context.Context, params ListParams) (*types.Page[UserDTO], error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, params, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	rows, next := pagination.Trim(rows, params.Limit, CursorOf)
	items := make([]UserDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &types.Page[UserDTO]{Items: items, NextCursor: next}, nil
}

// Approve activates a pending account.
func (s *adminService) Approve(ctx context.Context, adminID, userID uuid.UUID) (*UserDTO, error) {
	return s.decide(ctx, adminID, userID, enums.UserStatusActive, enums.EventUserApproved, "")
}

// Reject closes a pending account. Rejected accounts cannot log in.
func (s *adminService) Reject(ctx context.Context, adminID, userID uuid.UUID, reason string) (*UserDTO, error) {
	return s.decide(ctx, adminID, userID, enums.UserStatusRejected, enums.EventUserRejected, strings.TrimSpace(reason))
}

func (s *adminService) decide(ctx context.Context, adminID, userID uuid.UUID, next enums.UserStatus, eventType enums.OutboxEventType, reason string) (*UserDTO, error) {
	var out *UserDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.TransitionStatus(ctx, userID, []enums.UserStatus{enums.UserStatusPending}, next); err != nil {
			return s.transitionError(ctx, repo, userID, err, "only pending accounts can be approved or rejected")
		}
		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: adminID, Role: enums.UserRoleAdmin},
			Data: payloads.UserDecisionEvent{
				UserID:  user.ID,
				Email:   user.Email,
				Status:  next,
				Reason:  reason,
				ActorID: adminID,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit decision event")
		}
		out = FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"target_user_id": userID.String(),
		"status":         string(next),
	}), "account decided")
	return out, nil
}

// SetStatus toggles an approved account between active and inactive.
func (s *adminService) SetStatus(ctx context.Context, adminID, userID uuid.UUID, status enums.UserStatus) (*UserDTO, error) {
	var from []enums.UserStatus
	switch status {
	case enums.UserStatusActive:
		from = []enums.UserStatus{enums.UserStatusInactive, enums.UserStatusActive}
	case enums.UserStatusInactive:
		from = []enums.UserStatus{enums.UserStatusActive, enums.UserStatusInactive}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be active or inactive")
	}
	if adminID == userID && status == enums.UserStatusInactive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admins cannot deactivate themselves")
	}

	var out *UserDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.TransitionStatus(ctx, userID, from, status); err != nil {
			return s.transitionError(ctx, repo, userID, err, "account has not been approved")
		}
		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
		}
		out = FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *adminService) transitionError(ctx context.Context, repo *Repository, userID uuid.UUID, err error, conflict string) error {
	if !errors.Is(err, ErrStatusUnchanged) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user status")
	}
	if _, findErr := repo.FindByID(ctx, userID); errors.Is(findErr, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, conflict)
}

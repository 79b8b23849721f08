package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/outbox"
	"github.com/printdock/printdock-backend/pkg/outbox/payloads"
	"github.com/printdock/printdock-backend/pkg/security"
)

const defaultResetTokenTTL = time.Hour

// ForgotPassword issues a one-time reset token for email. Unknown addresses
// succeed silently so the endpoint cannot be used to enumerate accounts.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if user.Status == enums.UserStatusRejected {
		return nil
	}

	raw, hash, err := security.NewResetToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	ttl := s.passwordCfg.ResetTokenTTL
	if ttl <= 0 {
		ttl = defaultResetTokenTTL
	}
	if err := s.resets.Set(ctx, s.resets.PasswordResetKey(hash), user.ID.String(), ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset token")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPasswordResetRequested,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Data: payloads.PasswordResetRequestedEvent{
				UserID:    user.ID,
				Email:     user.Email,
				Token:     raw,
				ExpiresAt: s.now().Add(ttl),
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue reset email")
	}
	return nil
}

// ResetPassword consumes token and replaces the password.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if strings.TrimSpace(req.Token) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset token")
	}
	hash := security.HashResetToken(req.Token)
	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	stored, err := s.resets.GetDel(ctx, s.resets.PasswordResetKey(hash))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume reset token")
	}
	userID, err := uuid.Parse(stored)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset token")
	}
	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}

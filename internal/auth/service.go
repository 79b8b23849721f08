package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printdock/printdock-backend/internal/users"
	pkgAuth "github.com/printdock/printdock-backend/pkg/auth"
	"github.com/printdock/printdock-backend/pkg/auth/session"
	"github.com/printdock/printdock-backend/pkg/config"
	"github.com/printdock/printdock-backend/pkg/db/models"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/logger"
	"github.com/printdock/printdock-backend/pkg/outbox"
	"github.com/printdock/printdock-backend/pkg/outbox/payloads"
	"github.com/printdock/printdock-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessID string) error
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req ProfileRequest) (*users.UserDTO, error)
	SetPhoto(ctx context.Context, userID uuid.UUID, url string) (*users.UserDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionManager interface {
	Generate(ctx context.Context, userID uuid.UUID) (session.Issued, error)
	Rotate(ctx context.Context, refreshToken string) (session.Issued, error)
	Revoke(ctx context.Context, accessID string) error
}

type resetTokenStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	PasswordResetKey(tokenHash string) string
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB             txRunner
	UserRepo       *users.Repository
	SessionManager sessionManager
	ResetTokens    resetTokenStore
	Outbox         outbox.Emitter
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	db          txRunner
	users       *users.Repository
	session     sessionManager
	resets      resetTokenStore
	outbox      outbox.Emitter
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.ResetTokens == nil {
		return nil, fmt.Errorf("reset token store is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	return &service{
		db:          params.DB,
		users:       params.UserRepo,
		session:     params.SessionManager,
		resets:      params.ResetTokens,
		outbox:      params.Outbox,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if err := checkLoginStatus(user.Status); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	pair, err := s.openSession(ctx, user, now)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		Token:        pair.Token,
		RefreshToken: pair.RefreshToken,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	company := strings.TrimSpace(req.CompanyName)
	if company == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company_name is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		if _, err := repo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := repo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			CompanyName:  company,
			ContactName:  strings.TrimSpace(req.ContactName),
			Phone:        req.Phone,
			Status:       enums.UserStatusPending,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		created = user

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Data: payloads.UserRegisteredEvent{
				UserID:      user.ID,
				Email:       user.Email,
				CompanyName: user.CompanyName,
			},
		})
	})
	if err != nil {
		return nil, asInternal(err, "register user")
	}
	return users.FromModel(created), nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	issued, err := s.session.Rotate(ctx, strings.TrimSpace(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.FindByID(ctx, issued.UserID)
	if err != nil {
		_ = s.session.Revoke(ctx, issued.AccessID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if err := checkLoginStatus(user.Status); err != nil {
		_ = s.session.Revoke(ctx, issued.AccessID)
		return nil, err
	}

	token, err := s.mint(user, issued.AccessID, s.now())
	if err != nil {
		return nil, err
	}
	return &TokenPair{Token: token, RefreshToken: issued.RefreshToken}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req ProfileRequest) (*users.UserDTO, error) {
	update := users.ProfileUpdate{
		ContactName: trimPtr(req.ContactName),
		Phone:       trimPtr(req.Phone),
	}
	if req.CompanyName != nil {
		name := strings.TrimSpace(*req.CompanyName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "company_name cannot be empty")
		}
		update.CompanyName = &name
	}
	return s.applyProfile(ctx, userID, update)
}

func (s *service) SetPhoto(ctx context.Context, userID uuid.UUID, url string) (*users.UserDTO, error) {
	if strings.TrimSpace(url) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "photo url is required")
	}
	return s.applyProfile(ctx, userID, users.ProfileUpdate{PhotoURL: &url})
}

func (s *service) applyProfile(ctx context.Context, userID uuid.UUID, update users.ProfileUpdate) (*users.UserDTO, error) {
	if err := s.users.UpdateProfile(ctx, userID, update); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return s.Me(ctx, userID)
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := normalizeEmail(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	check, err := security.CheckPassword(password, user.PasswordHash, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !check.Match {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if check.Rehash {
		s.upgradePasswordHash(ctx, user, password)
	}
	return user, nil
}

// upgradePasswordHash rewrites a legacy or outdated hash with the current
// Argon2id settings. Failure only costs another attempt on the next login.
func (s *service) upgradePasswordHash(ctx context.Context, user *models.User, password string) {
	ctx = s.logg.WithField(ctx, "user_id", user.ID.String())
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err == nil {
		err = s.users.UpdatePassword(ctx, user.ID, hash)
	}
	if err != nil {
		s.logg.Error(ctx, "auth.password_rehash_failed", err)
		return
	}
	user.PasswordHash = hash
	s.logg.Info(ctx, "auth.password_rehashed")
}

func (s *service) openSession(ctx context.Context, user *models.User, now time.Time) (*TokenPair, error) {
	issued, err := s.session.Generate(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	token, err := s.mint(user, issued.AccessID, now)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Token: token, RefreshToken: issued.RefreshToken}, nil
}

func (s *service) mint(user *models.User, accessID string, now time.Time) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

// checkLoginStatus maps non-active accounts to a status-specific refusal.
func checkLoginStatus(status enums.UserStatus) error {
	switch status {
	case enums.UserStatusActive:
		return nil
	case enums.UserStatusPending:
		return pkgerrors.New(pkgerrors.CodeForbidden, "account is pending approval")
	case enums.UserStatusRejected:
		return pkgerrors.New(pkgerrors.CodeForbidden, "account registration was rejected")
	case enums.UserStatusInactive:
		return pkgerrors.New(pkgerrors.CodeForbidden, "account is inactive")
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "account is not active")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.TrimSpace(*v)
	return &out
}

func asInternal(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}

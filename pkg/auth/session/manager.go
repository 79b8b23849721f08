package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/printdock/printdock-backend/pkg/config"
	redisclient "github.com/printdock/printdock-backend/pkg/redis"
)

const refreshSecretBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// Issued is a freshly stored session. AccessID becomes the access token jti;
// RefreshToken is handed to the client as-is.
type Issued struct {
	UserID       uuid.UUID
	AccessID     string
	RefreshToken string
}

// Manager handles refresh token creation, storage, and rotation. Each access
// token id maps to one redis record holding the owning user and the refresh
// secret.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}

	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// Generate opens a new session for userID.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID) (Issued, error) {
	if userID == uuid.Nil {
		return Issued{}, fmt.Errorf("user id is required")
	}
	return m.issue(ctx, userID)
}

// Rotate validates refreshToken, drops its session, and opens a replacement
// for the same user.
func (m *Manager) Rotate(ctx context.Context, refreshToken string) (Issued, error) {
	accessID, secret, ok := splitRefreshToken(refreshToken)
	if !ok {
		return Issued{}, ErrInvalidRefreshToken
	}

	key := m.keyer.AccessSessionKey(accessID)
	stored, err := m.store.Get(ctx, key)
	if err != nil {
		return Issued{}, wrapNotFound(err)
	}
	userID, storedSecret, ok := decodeRecord(stored)
	if !ok {
		return Issued{}, ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(storedSecret), []byte(secret)) != 1 {
		return Issued{}, ErrInvalidRefreshToken
	}

	issued, err := m.issue(ctx, userID)
	if err != nil {
		return Issued{}, err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return Issued{}, err
	}
	return issued, nil
}

// Revoke deletes the refresh mapping tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// HasSession reports whether the provided access ID still has an active refresh session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *Manager) issue(ctx context.Context, userID uuid.UUID) (Issued, error) {
	accessID := NewAccessID()
	secret, err := generateSecret()
	if err != nil {
		return Issued{}, err
	}
	record := userID.String() + "|" + secret
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), record, m.ttl); err != nil {
		return Issued{}, err
	}
	return Issued{
		UserID:       userID,
		AccessID:     accessID,
		RefreshToken: accessID + "." + secret,
	}, nil
}

// NewAccessID produces a stable identifier used as the JWT jti/Redis key.
func NewAccessID() string {
	return uuid.NewString()
}

func splitRefreshToken(token string) (string, string, bool) {
	accessID, secret, found := strings.Cut(strings.TrimSpace(token), ".")
	if !found || accessID == "" || secret == "" {
		return "", "", false
	}
	return accessID, secret, true
}

func decodeRecord(record string) (uuid.UUID, string, bool) {
	rawID, secret, found := strings.Cut(record, "|")
	if !found {
		return uuid.Nil, "", false
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, "", false
	}
	return userID, secret, true
}

func generateSecret() (string, error) {
	buf := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, redislib.Nil) {
		return ErrInvalidRefreshToken
	}
	return err
}

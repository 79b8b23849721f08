package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TokenTTL is the client-side lifetime of a token, counted from when it was stored.
const TokenTTL = 24 * time.Hour

// StoredToken is the persisted session. ReturnURL survives a purge so the
// next login can send the user back where they were.
type StoredToken struct {
	Token        string    `json:"token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IssuedAt     time.Time `json:"issued_at,omitempty"`
	ReturnURL    string    `json:"return_url,omitempty"`
}

// Expired reports whether the token is missing or older than TokenTTL at now.
func (t StoredToken) Expired(now time.Time) bool {
	if t.Token == "" || t.IssuedAt.IsZero() {
		return true
	}
	return !now.Before(t.IssuedAt.Add(TokenTTL))
}

// TokenStore persists the session between runs. Load returns the zero value
// when nothing is stored.
type TokenStore interface {
	Load() (StoredToken, error)
	Save(StoredToken) error
	Clear() error
}

type MemoryTokenStore struct {
	mu  sync.Mutex
	tok StoredToken
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (m *MemoryTokenStore) Load() (StoredToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tok, nil
}

func (m *MemoryTokenStore) Save(tok StoredToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = tok
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = StoredToken{}
	return nil
}

// FileTokenStore keeps the session as a 0600 JSON file.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// DefaultTokenPath is <user config dir>/printdock/session.json.
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "printdock", "session.json"), nil
}

func (f *FileTokenStore) Load() (StoredToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return StoredToken{}, nil
	}
	if err != nil {
		return StoredToken{}, fmt.Errorf("read token file: %w", err)
	}
	var tok StoredToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return StoredToken{}, fmt.Errorf("decode token file: %w", err)
	}
	return tok, nil
}

func (f *FileTokenStore) Save(tok StoredToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileTokenStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

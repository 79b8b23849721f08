// Package session tracks whether the SDK user is signed in. Checks against
// the API are cached for a window and de-duplicated while in flight.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/printdock/printdock-backend/pkg/client"
	"github.com/printdock/printdock-backend/pkg/logger"
)

type State string

const (
	StateUnknown         State = "unknown"
	StateChecking        State = "checking"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

const (
	checkKey       = "auth-check"
	mePath         = "/api/v1/auth/me"
	loginPath      = "/api/v1/auth/login"
	logoutPath     = "/api/v1/auth/logout"
	registerPath   = "/api/v1/auth/register"
	forgotPassPath = "/api/v1/auth/forgot-password"
)

// LoginResult reports an expected login failure without an error.
type LoginResult struct {
	Success   bool
	User      *client.User
	Message   string
	Code      string
	ReturnURL string
}

type Options struct {
	Cache  *CheckCache
	Retry  RetryPolicy
	Online OnlineFunc
	Logger *logger.Logger
	Now    func() time.Time
}

type Manager struct {
	api    *client.Client
	tokens client.TokenStore
	cache  *CheckCache
	retry  RetryPolicy
	online OnlineFunc
	logg   *logger.Logger
	now    func() time.Time

	group    singleflight.Group
	checking atomic.Bool

	mu     sync.RWMutex
	state  State
	user   *client.User
	gen    uint64
	life   context.Context
	cancel context.CancelFunc
}

func NewManager(api *client.Client, opts Options) (*Manager, error) {
	if api == nil {
		return nil, errors.New("api client is required")
	}
	m := &Manager{
		api:    api,
		tokens: api.Tokens(),
		cache:  opts.Cache,
		retry:  opts.Retry,
		online: opts.Online,
		logg:   opts.Logger,
		now:    opts.Now,
		state:  StateUnknown,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.cache == nil {
		m.cache = NewCheckCache(DefaultCheckWindow)
		m.cache.now = m.now
	}
	if m.retry.Attempts == 0 {
		m.retry = DefaultRetryPolicy()
	}
	if m.logg == nil {
		m.logg = logger.Nop()
	}
	m.life, m.cancel = context.WithCancel(context.Background())
	api.OnUnauthorized(m.invalidate)
	return m, nil
}

// invalidate runs when any API call comes back 401. The client has already
// dropped the token, so the cached check no longer holds.
func (m *Manager) invalidate(ctx context.Context) {
	m.cache.Reset()
	m.resolve(m.generation(), nil)
	m.logg.Info(ctx, "session.invalidated")
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) User() *client.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// Start resolves the initial state from the persisted token.
func (m *Manager) Start(ctx context.Context) (State, error) {
	tok, err := m.tokens.Load()
	if err != nil {
		m.logg.Error(ctx, "session.token_load_failed", err)
	}
	if tok.Token == "" {
		m.resolve(m.generation(), nil)
		return StateUnauthenticated, nil
	}
	if tok.Expired(m.now()) {
		m.dropToken(ctx)
		m.resolve(m.generation(), nil)
		return StateUnauthenticated, nil
	}
	if _, err := m.check(ctx); err != nil {
		return m.State(), err
	}
	return m.State(), nil
}

// CurrentUser returns the signed-in user, or nil when unauthenticated. A
// result verified inside the cache window is reused without a request as
// long as the stored token is still present and unexpired.
func (m *Manager) CurrentUser(ctx context.Context) (*client.User, error) {
	tok, _ := m.tokens.Load()
	if tok.Token == "" || tok.Expired(m.now()) {
		if tok.Token != "" {
			m.dropToken(ctx)
		}
		m.cache.Reset()
		m.resolve(m.generation(), nil)
		return nil, nil
	}
	if user, ok := m.cache.Get(); ok {
		return user, nil
	}
	return m.check(ctx)
}

// RefreshAuth re-checks with the API, ignoring the cache. It is a no-op while
// another check is running.
func (m *Manager) RefreshAuth(ctx context.Context) (*client.User, error) {
	if m.checking.Load() {
		return m.User(), nil
	}
	return m.check(ctx)
}

func (m *Manager) check(ctx context.Context) (*client.User, error) {
	v, err, _ := m.group.Do(checkKey, func() (any, error) {
		m.checking.Store(true)
		defer m.checking.Store(false)
		return m.fetchProfile(ctx)
	})
	if err != nil {
		return nil, err
	}
	user, _ := v.(*client.User)
	return user, nil
}

func (m *Manager) fetchProfile(ctx context.Context) (*client.User, error) {
	gen := m.generation()
	m.setState(gen, StateChecking)

	ctx, cancel := m.bind(ctx)
	defer cancel()

	var user client.User
	err := withRetry(ctx, m.retry, m.online, func(ctx context.Context) error {
		return m.api.Do(ctx, http.MethodGet, mePath, nil, &user)
	})
	switch {
	case err == nil:
		m.resolve(gen, &user)
		return &user, nil
	case rejected(err):
		m.dropToken(ctx)
		m.resolve(gen, nil)
		return nil, nil
	default:
		m.setState(gen, StateUnknown)
		return nil, err
	}
}

// Login signs in. Bad credentials and blocked accounts come back as a
// LoginResult with Success false; only unexpected failures return an error.
func (m *Manager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	gen := m.generation()
	ctx, cancel := m.bind(ctx)
	defer cancel()

	body := map[string]string{"email": email, "password": password}
	var resp client.LoginResponse
	err := withRetry(ctx, m.retry, m.online, func(ctx context.Context) error {
		return m.api.Do(ctx, http.MethodPost, loginPath, body, &resp, client.WithoutAuth())
	})
	if err != nil {
		switch client.Classify(err) {
		case client.KindAuth, client.KindValidation, client.KindBusiness:
			msg, code := client.Describe(err)
			return &LoginResult{Success: false, Message: msg, Code: code}, nil
		}
		return nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return nil, errors.New("login response missing token")
	}

	prev, _ := m.tokens.Load()
	if err := m.tokens.Save(client.StoredToken{
		Token:        resp.Token,
		RefreshToken: resp.RefreshToken,
		IssuedAt:     m.now(),
	}); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}
	m.resolve(gen, resp.User)
	m.logg.Info(m.logg.WithField(ctx, "user_id", resp.User.ID.String()), "session.login")
	return &LoginResult{Success: true, User: resp.User, ReturnURL: prev.ReturnURL}, nil
}

// Logout always clears local state, even when the API call fails, and
// cancels any retry loop still running.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.cancel()
	m.life, m.cancel = context.WithCancel(context.Background())
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	if tok, _ := m.tokens.Load(); tok.Token != "" {
		if err := m.api.Do(ctx, http.MethodPost, logoutPath, nil, nil); err != nil {
			m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "session.remote_logout_failed")
		}
	}
	if err := m.tokens.Clear(); err != nil {
		m.logg.Error(ctx, "session.token_clear_failed", err)
	}
	m.resolve(gen, nil)
	return nil
}

func (m *Manager) Register(ctx context.Context, req client.RegisterRequest) (*client.User, error) {
	var user client.User
	if err := m.api.Do(ctx, http.MethodPost, registerPath, req, &user, client.WithoutAuth(), client.WithIdempotencyKey("")); err != nil {
		return nil, err
	}
	return &user, nil
}

func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	return m.api.Do(ctx, http.MethodPost, forgotPassPath, map[string]string{"email": email}, nil, client.WithoutAuth())
}

// IsTokenExpired reports whether the stored token is missing or older than
// client.TokenTTL at now.
func (m *Manager) IsTokenExpired(now time.Time) bool {
	tok, err := m.tokens.Load()
	if err != nil {
		return true
	}
	return tok.Expired(now)
}

// bind derives a context that is also cancelled by Logout.
func (m *Manager) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	m.mu.RLock()
	life := m.life
	m.mu.RUnlock()

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (m *Manager) generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

func (m *Manager) setState(gen uint64, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.state = state
}

// resolve settles the state unless a logout happened since gen was read.
func (m *Manager) resolve(gen uint64, user *client.User) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.user = user
	if user != nil {
		m.state = StateAuthenticated
	} else {
		m.state = StateUnauthenticated
	}
	m.mu.Unlock()
	m.cache.Put(user)
}

// dropToken removes the token but keeps a captured return URL.
func (m *Manager) dropToken(ctx context.Context) {
	prev, _ := m.tokens.Load()
	if err := m.tokens.Save(client.StoredToken{ReturnURL: prev.ReturnURL}); err != nil {
		m.logg.Error(ctx, "session.token_clear_failed", err)
	}
}

func rejected(err error) bool {
	status := client.StatusOf(err)
	return status == http.StatusUnauthorized || status == http.StatusNotFound
}

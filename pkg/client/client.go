// Package client is the Go SDK for the PrintDock API. It injects the stored
// bearer token, unwraps the response envelope and purges the token on 401.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/logger"
)

const (
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 10 << 20
	loginPath        = "/login"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// RatePerSecond throttles outgoing requests. Zero disables throttling.
	RatePerSecond float64
	Burst         int
}

type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	tokens  TokenStore
	logg    *logger.Logger

	mu      sync.RWMutex
	current string
	onPurge []func(context.Context)
}

func New(cfg Config, tokens TokenStore, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("base url is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		base:    base,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		tokens:  tokens,
		logg:    logg,
	}, nil
}

// Tokens exposes the store the client reads bearer tokens from.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// SetCurrentPath records where the user is, for return-URL capture on 401.
func (c *Client) SetCurrentPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = path
}

// OnUnauthorized registers fn to run after a 401 has purged the token.
func (c *Client) OnUnauthorized(fn func(context.Context)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPurge = append(c.onPurge, fn)
}

func (c *Client) currentPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Purge401 is the pure part of unauthorized handling: a 401 clears the token
// and remembers currentPath so the user can be sent back after logging in.
func Purge401(currentPath string, status int) (clearToken bool, returnURL string) {
	if status != http.StatusUnauthorized {
		return false, ""
	}
	if currentPath == "" || currentPath == loginPath {
		return true, ""
	}
	return true, currentPath
}

type requestOptions struct {
	query   url.Values
	headers http.Header
	noAuth  bool
}

type RequestOption func(*requestOptions)

func WithQuery(q url.Values) RequestOption {
	return func(o *requestOptions) {
		o.query = q
	}
}

// WithIdempotencyKey sets the Idempotency-Key header. An empty key generates one.
func WithIdempotencyKey(key string) RequestOption {
	if key == "" {
		key = uuid.NewString()
	}
	return WithHeader("Idempotency-Key", key)
}

func WithHeader(name, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = http.Header{}
		}
		o.headers.Set(name, value)
	}
}

// WithoutAuth skips bearer injection, for login and signup.
func WithoutAuth() RequestOption {
	return func(o *requestOptions) {
		o.noAuth = true
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Details json.RawMessage `json:"details"`
}

// Do sends a JSON request and decodes the envelope data into out when non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var payload []byte
	contentType := ""
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = raw
		contentType = "application/json"
	}
	return c.send(ctx, method, path, contentType, payload, out, opts)
}

// Upload posts one file as multipart form field.
func (c *Client) Upload(ctx context.Context, path, field, fileName string, content io.Reader, out any, opts ...RequestOption) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, fileName)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}
	return c.send(ctx, http.MethodPost, path, mw.FormDataContentType(), buf.Bytes(), out, opts)
}

func (c *Client) send(ctx context.Context, method, path, contentType string, payload []byte, out any, opts []RequestOption) error {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	target := c.base.JoinPath(path)
	if len(ro.query) > 0 {
		target.RawQuery = ro.query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for name, values := range ro.headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if !ro.noAuth {
		tok, err := c.tokens.Load()
		if err != nil {
			c.logg.Warn(ctx, "client.token_load_failed")
		} else if tok.Token != "" {
			req.Header.Set("Authorization", "Bearer "+tok.Token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if clear, returnURL := Purge401(c.currentPath(), resp.StatusCode); clear && !ro.noAuth {
		c.purge(ctx, returnURL)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= http.StatusBadRequest || decodeErr != nil || !env.Success {
		return responseError(resp.StatusCode, env, decodeErr)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *Client) purge(ctx context.Context, returnURL string) {
	if err := c.tokens.Save(StoredToken{ReturnURL: returnURL}); err != nil {
		c.logg.Error(ctx, "client.token_purge_failed", err)
	} else {
		c.logg.Info(c.logg.WithField(ctx, "return_url", returnURL), "client.token_purged")
	}

	c.mu.RLock()
	hooks := append([]func(context.Context){}, c.onPurge...)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn(ctx)
	}
}

func responseError(status int, env envelope, decodeErr error) error {
	apiErr := &Error{
		Status:  status,
		Code:    pkgerrors.Code(env.Code),
		Message: env.Message,
		Details: env.Details,
	}
	if decodeErr != nil && apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

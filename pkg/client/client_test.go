package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *MemoryTokenStore) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tokens := NewMemoryTokenStore()
	c, err := New(Config{BaseURL: srv.URL}, tokens, nil)
	require.NoError(t, err)
	return c, tokens
}

func TestPurge401(t *testing.T) {
	cases := []struct {
		name      string
		path      string
		status    int
		wantClear bool
		wantURL   string
	}{
		{"unauthorized keeps path", "/orders/42", http.StatusUnauthorized, true, "/orders/42"},
		{"unauthorized on login page", "/login", http.StatusUnauthorized, true, ""},
		{"unauthorized without path", "", http.StatusUnauthorized, true, ""},
		{"forbidden is not a purge", "/admin", http.StatusForbidden, false, ""},
		{"success", "/orders", http.StatusOK, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clear, ret := Purge401(tc.path, tc.status)
			assert.Equal(t, tc.wantClear, clear)
			assert.Equal(t, tc.wantURL, ret)
		})
	}
}

func TestDoInjectsBearerAndDecodesData(t *testing.T) {
	var gotAuth, gotQuery string
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("search")
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"name": "Tee", "sku": "TEE-1"}})
	})
	require.NoError(t, tokens.Save(StoredToken{Token: "abc", IssuedAt: time.Now()}))

	var out Product
	err := c.Do(context.Background(), http.MethodGet, "/api/v1/products/1", nil, &out, WithQuery(url.Values{"search": {"tee"}}))
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "tee", gotQuery)
	assert.Equal(t, "TEE-1", out.SKU)
}

func TestDoWithoutAuthSkipsBearer(t *testing.T) {
	var gotAuth string
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true})
	})
	require.NoError(t, tokens.Save(StoredToken{Token: "abc", IssuedAt: time.Now()}))

	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/api/v1/auth/login", map[string]string{}, nil, WithoutAuth()))
	assert.Empty(t, gotAuth)
}

func TestUnauthorizedPurgesTokenAndCapturesPath(t *testing.T) {
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false, "code": "UNAUTHORIZED", "message": "invalid token"})
	})
	require.NoError(t, tokens.Save(StoredToken{Token: "stale", IssuedAt: time.Now()}))
	c.SetCurrentPath("/orders/42")

	err := c.Do(context.Background(), http.MethodGet, "/api/v1/orders/42", nil, nil)
	require.Error(t, err)
	assert.Equal(t, KindAuth, Classify(err))

	tok, _ := tokens.Load()
	assert.Empty(t, tok.Token)
	assert.True(t, tok.IssuedAt.IsZero())
	assert.Equal(t, "/orders/42", tok.ReturnURL)
}

func TestUnauthorizedRunsPurgeHooks(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusUnauthorized)
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		code := int(status.Load())
		writeEnvelope(w, code, map[string]any{"success": code == http.StatusOK, "code": "UNAUTHORIZED"})
	})
	require.NoError(t, tokens.Save(StoredToken{Token: "tok", IssuedAt: time.Now()}))

	var calls int
	c.OnUnauthorized(func(context.Context) { calls++ })
	c.OnUnauthorized(nil)

	require.Error(t, c.Do(context.Background(), http.MethodGet, "/api/v1/orders", nil, nil))
	assert.Equal(t, 1, calls)

	require.Error(t, c.Do(context.Background(), http.MethodPost, "/api/v1/auth/login", nil, nil, WithoutAuth()))
	assert.Equal(t, 1, calls, "unauthenticated requests never purge")

	status.Store(http.StatusOK)
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/api/v1/orders", nil, nil))
	assert.Equal(t, 1, calls)
}

func TestErrorEnvelopeBecomesTypedError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusPaymentRequired, map[string]any{
			"success": false,
			"code":    "INSUFFICIENT_BALANCE",
			"message": "insufficient balance",
			"details": map[string]any{"required": "50.98"},
		})
	})

	err := c.Do(context.Background(), http.MethodPost, "/api/v1/orders", map[string]any{}, nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.Status)
	assert.Equal(t, "INSUFFICIENT_BALANCE", string(apiErr.Code))
	assert.JSONEq(t, `{"required":"50.98"}`, string(apiErr.Details))
	assert.Equal(t, KindBusiness, Classify(err))
}

func TestNonJSONFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})

	err := c.Do(context.Background(), http.MethodGet, "/api/v1/products", nil, nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
	assert.Equal(t, KindTransient, Classify(err))
}

func TestIdempotencyKeyHeader(t *testing.T) {
	var key string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		writeEnvelope(w, http.StatusCreated, map[string]any{"success": true})
	})

	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/api/v1/orders", map[string]any{}, nil, WithIdempotencyKey("")))
	assert.Len(t, key, 36)

	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/api/v1/orders", map[string]any{}, nil, WithIdempotencyKey("fixed")))
	assert.Equal(t, "fixed", key)
}

func TestUploadSendsMultipart(t *testing.T) {
	var field, name, content string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeEnvelope(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
			return
		}
		defer file.Close()
		raw, _ := io.ReadAll(file)
		field, name, content = "file", header.Filename, string(raw)
		writeEnvelope(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"file_name": header.Filename, "order_count": 1}})
	})

	var out BatchImport
	err := c.Upload(context.Background(), "/api/v1/orders/batch", "file", "orders.csv", strings.NewReader("sku,quantity\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "file", field)
	assert.Equal(t, "orders.csv", name)
	assert.Equal(t, "sku,quantity\n", content)
	assert.Equal(t, 1, out.OrderCount)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"validation", &Error{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR"}, KindValidation},
		{"unauthorized", &Error{Status: http.StatusUnauthorized}, KindAuth},
		{"forbidden", &Error{Status: http.StatusForbidden}, KindAuth},
		{"not found", &Error{Status: http.StatusNotFound}, KindBusiness},
		{"conflict", &Error{Status: http.StatusConflict}, KindBusiness},
		{"rate limited", &Error{Status: http.StatusTooManyRequests}, KindTransient},
		{"unavailable", &Error{Status: http.StatusServiceUnavailable}, KindTransient},
		{"network", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, KindTransient},
		{"timeout", timeoutErr{}, KindTransient},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"cancelled", context.Canceled, KindUnexpected},
		{"other", errors.New("boom"), KindUnexpected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestStoredTokenExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, StoredToken{}.Expired(now))
	assert.False(t, StoredToken{Token: "t", IssuedAt: now}.Expired(now))
	assert.False(t, StoredToken{Token: "t", IssuedAt: now}.Expired(now.Add(TokenTTL-time.Second)))
	assert.True(t, StoredToken{Token: "t", IssuedAt: now}.Expired(now.Add(TokenTTL)))
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printdock", "session.json")
	store := NewFileTokenStore(path)

	tok, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, StoredToken{}, tok)

	issued := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(StoredToken{Token: "abc", IssuedAt: issued, ReturnURL: "/orders"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.Token)
	assert.True(t, issued.Equal(tok.IssuedAt))

	require.NoError(t, store.Clear())
	tok, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, StoredToken{}, tok)
	require.NoError(t, store.Clear(), "clearing twice is fine")
}

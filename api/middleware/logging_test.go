package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/printdock/printdock-backend/pkg/enums"
	"github.com/printdock/printdock-backend/pkg/logger"
)

func captureLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "api-test", Level: logger.ParseLevel("debug"), Output: buf})
}

// logEntries returns the decoded lines whose message is msg.
func logEntries(t *testing.T, buf *bytes.Buffer, msg string) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", scanner.Text(), err)
		}
		if entry["message"] == msg {
			out = append(out, entry)
		}
	}
	return out
}

func TestLoggingCarriesIdentityResolvedByAuth(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := captureLogger(buf)
	token, payload := mintTestToken(t, enums.UserRoleAdmin)

	chain := RequestID(logg)(Logging(logg)(Auth(testJWT, stubSessionVerifier{ok: true}, logg)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"success":true}`))
		}),
	)))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(requestIDHeader, "req-abc")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	entries := logEntries(t, buf, "request.complete")
	if len(entries) != 1 {
		t.Fatalf("expected one completion line, got %d: %s", len(entries), buf.String())
	}
	entry := entries[0]
	want := map[string]any{
		"user_id":    payload.UserID.String(),
		"actor_role": string(enums.UserRoleAdmin),
		"request_id": "req-abc",
		"status":     float64(http.StatusCreated),
		"bytes":      float64(len(`{"success":true}`)),
		"level":      "info",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Fatalf("expected %s=%v, got %v in %v", k, v, entry[k], entry)
		}
	}
}

func TestLoggingAnonymousAndFailures(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := captureLogger(buf)
	chain := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/health") {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))

	chain.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	chain.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	entries := logEntries(t, buf, "request.complete")
	if len(entries) != 1 {
		t.Fatalf("expected only the failing request logged, got %d", len(entries))
	}
	entry := entries[0]
	if entry["path"] != "/api/v1/products" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["user_id"]; ok {
		t.Fatalf("anonymous request must not carry user_id: %v", entry)
	}
}

func TestRequestIDEchoOrMint(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	cases := []struct {
		name   string
		header string
		echo   bool
	}{
		{"clean id echoed", "trace-42", true},
		{"missing", "", false},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
		{"control characters", "bad\x01id", false},
		{"spaces inside", "two words", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(requestIDHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get(requestIDHeader)
			if got == "" || got != seen {
				t.Fatalf("header %q and context %q must match", got, seen)
			}
			if tc.echo && got != tc.header {
				t.Fatalf("expected echo of %q, got %q", tc.header, got)
			}
			if !tc.echo && got == tc.header {
				t.Fatalf("expected a minted id, got %q", got)
			}
		})
	}
}

func TestRecovererWritesEnvelopeWithRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := captureLogger(buf)
	chain := Recoverer(logg)(RequestID(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil pricing engine")
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/quote", nil)
	req.Header.Set(requestIDHeader, "req-panic")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	entries := logEntries(t, buf, "request.panic")
	if len(entries) != 1 || entries[0]["request_id"] != "req-panic" || entries[0]["path"] != "/api/v1/orders/quote" {
		t.Fatalf("unexpected panic log %s", buf.String())
	}
}

func TestRecovererRethrowsAbort(t *testing.T) {
	chain := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	chain.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

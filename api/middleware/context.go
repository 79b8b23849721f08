package middleware

import (
	"context"
	"sync"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
	ctxSessionID contextKey = "session_id"
	ctxTrace     contextKey = "request_trace"
)

// requestTrace is created by Logging and filled in by middleware further down
// the chain. Contexts only flow inward, so identity resolved by Auth reaches
// the completion log through this shared pointer.
type requestTrace struct {
	mu        sync.Mutex
	requestID string
	userID    string
	role      string
}

func withTrace(ctx context.Context) (context.Context, *requestTrace) {
	if t := traceFrom(ctx); t != nil {
		return ctx, t
	}
	t := &requestTrace{}
	return context.WithValue(ctx, ctxTrace, t), t
}

func traceFrom(ctx context.Context) *requestTrace {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(ctxTrace).(*requestTrace)
	return t
}

func (t *requestTrace) setRequestID(id string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.requestID = id
	t.mu.Unlock()
}

func (t *requestTrace) setActor(userID, role string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.userID, t.role = userID, role
	t.mu.Unlock()
}

func (t *requestTrace) fields() map[string]any {
	out := map[string]any{}
	if t == nil {
		return out
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.userID != "" {
		out["user_id"] = t.userID
		out["actor_role"] = t.role
	}
	return out
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext returns the jti of the access token.
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// RequestIDFromContext returns the id assigned by RequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	t := traceFrom(ctx)
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requestID
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// WithSessionID injects the access token id into the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSessionID, id)
}

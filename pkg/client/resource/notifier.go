package resource

import (
	"context"

	"github.com/printdock/printdock-backend/pkg/logger"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Action string

const (
	ActionList   Action = "list"
	ActionGet    Action = "get"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Notice is a short user-facing message about a finished call.
type Notice struct {
	Level    Level
	Action   Action
	Resource string
	Message  string
	Code     string
}

// Notifier surfaces notices to whoever is driving the SDK.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) {
	f(ctx, n)
}

// LogNotifier writes notices to the structured logger.
type LogNotifier struct {
	Logger *logger.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notice) {
	logg := l.Logger
	if logg == nil {
		return
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"resource": n.Resource,
		"action":   string(n.Action),
		"code":     n.Code,
	})
	if n.Level == LevelError {
		logg.Warn(ctx, n.Message)
		return
	}
	logg.Info(ctx, n.Message)
}

// Package resource wraps one REST collection of the API in typed CRUD calls.
// Failures come back as a Result with Success false instead of an error.
package resource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"

	"github.com/printdock/printdock-backend/pkg/client"
	"github.com/printdock/printdock-backend/pkg/logger"
	"github.com/printdock/printdock-backend/pkg/types"
)

// Result is the uniform outcome of every resource call.
type Result[T any] struct {
	Success bool
	Data    T
	Message string
	Code    string
}

type Option func(*settings)

type settings struct {
	name     string
	notifier Notifier
	logg     *logger.Logger
}

// WithNotifier replaces the default logging notifier.
func WithNotifier(n Notifier) Option {
	return func(s *settings) {
		s.notifier = n
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(s *settings) {
		s.logg = logg
	}
}

// WithName sets the label used in notices. Defaults to the collection path.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

type Resource[T any] struct {
	api      *client.Client
	base     string
	name     string
	notifier Notifier
	logg     *logger.Logger
}

// New binds a resource to the collection at base, e.g. "/api/v1/products".
func New[T any](api *client.Client, base string, opts ...Option) *Resource[T] {
	s := settings{name: path.Base(base)}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logg}
	}
	return &Resource[T]{
		api:      api,
		base:     base,
		name:     s.name,
		notifier: s.notifier,
		logg:     s.logg,
	}
}

func (r *Resource[T]) List(ctx context.Context, params url.Values) Result[types.Page[T]] {
	var page types.Page[T]
	err := r.api.Do(ctx, http.MethodGet, r.base, nil, &page, client.WithQuery(params))
	if page.Items == nil {
		page.Items = []T{}
	}
	return finish(ctx, r, ActionList, page, err)
}

func (r *Resource[T]) Get(ctx context.Context, id string) Result[T] {
	var item T
	err := r.api.Do(ctx, http.MethodGet, r.itemPath(id), nil, &item)
	return finish(ctx, r, ActionGet, item, err)
}

// Create posts body with a fresh idempotency key.
func (r *Resource[T]) Create(ctx context.Context, body any) Result[T] {
	var item T
	err := r.api.Do(ctx, http.MethodPost, r.base, body, &item, client.WithIdempotencyKey(""))
	return finish(ctx, r, ActionCreate, item, err)
}

func (r *Resource[T]) Update(ctx context.Context, id string, body any) Result[T] {
	var item T
	err := r.api.Do(ctx, http.MethodPut, r.itemPath(id), body, &item)
	return finish(ctx, r, ActionUpdate, item, err)
}

func (r *Resource[T]) Delete(ctx context.Context, id string) Result[struct{}] {
	err := r.api.Do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
	return finish(ctx, r, ActionDelete, struct{}{}, err)
}

func (r *Resource[T]) itemPath(id string) string {
	return r.base + "/" + url.PathEscape(id)
}

// finish converts err into a Result and emits a notice. Reads only notify on
// failure.
func finish[T, D any](ctx context.Context, r *Resource[T], action Action, data D, err error) Result[D] {
	if err == nil {
		if action != ActionList && action != ActionGet {
			r.notifier.Notify(ctx, Notice{
				Level:    LevelSuccess,
				Action:   action,
				Resource: r.name,
				Message:  fmt.Sprintf("%s %sd", r.name, action),
			})
		}
		return Result[D]{Success: true, Data: data}
	}

	msg, code := client.Describe(err)
	r.logg.Error(r.logg.WithFields(ctx, map[string]any{
		"resource": r.name,
		"action":   string(action),
		"kind":     string(client.Classify(err)),
	}), "resource.call_failed", err)
	r.notifier.Notify(ctx, Notice{
		Level:    LevelError,
		Action:   action,
		Resource: r.name,
		Message:  msg,
		Code:     code,
	})

	var zero D
	return Result[D]{Success: false, Data: zero, Message: msg, Code: code}
}

package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/printdock/printdock-backend/api/middleware"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
)

type caller struct {
	UserID uuid.UUID
	Admin  bool
}

// callerFrom reads the identity placed on the context by the auth middleware.
func callerFrom(r *http.Request) (caller, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return caller{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return caller{
		UserID: id,
		Admin:  middleware.RoleFromContext(r.Context()) == string(enums.UserRoleAdmin),
	}, nil
}

// scope limits a listing to the caller unless they are an admin.
func (c caller) scope() *uuid.UUID {
	if c.Admin {
		return nil
	}
	id := c.UserID
	return &id
}

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
)

// Error is a non-success API response.
type Error struct {
	Status  int
	Code    pkgerrors.Code
	Message string
	Details json.RawMessage
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// ErrorKind buckets failures by how a caller should react to them.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindTransient  ErrorKind = "transient"
	KindBusiness   ErrorKind = "business"
	KindUnexpected ErrorKind = "unexpected"
)

// Classify maps err to an ErrorKind. Only KindTransient is worth retrying.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return KindUnexpected
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			return KindAuth
		case apiErr.Status == http.StatusBadRequest || apiErr.Code == pkgerrors.CodeValidation:
			return KindValidation
		case apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError:
			return KindTransient
		case apiErr.Status >= http.StatusBadRequest:
			return KindBusiness
		}
		return KindUnexpected
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindUnexpected
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Describe returns a message and code safe to show a user.
func Describe(err error) (string, string) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Status)
		}
		return msg, string(apiErr.Code)
	}
	if Classify(err) == KindTransient {
		return "network unavailable, try again", string(pkgerrors.CodeDependency)
	}
	return "unexpected error", string(pkgerrors.CodeInternal)
}

package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON stores an arbitrary Go value in a jsonb column. SQLite test databases
// receive the same encoded text.
type JSON[T any] struct {
	Val T
}

// NewJSON wraps v for storage.
func NewJSON[T any](v T) JSON[T] {
	return JSON[T]{Val: v}
}

// Get returns the wrapped value.
func (j JSON[T]) Get() T {
	return j.Val
}

// Value encodes the wrapped value as JSON text.
func (j JSON[T]) Value() (driver.Value, error) {
	raw, err := json.Marshal(j.Val)
	if err != nil {
		return nil, fmt.Errorf("json column: %w", err)
	}
	return string(raw), nil
}

// Scan decodes a jsonb column into the wrapped value.
func (j *JSON[T]) Scan(src any) error {
	var zero T
	switch v := src.(type) {
	case nil:
		j.Val = zero
		return nil
	case []byte:
		return j.decode(v)
	case string:
		return j.decode([]byte(v))
	default:
		return fmt.Errorf("json column: unsupported scan type %T", src)
	}
}

func (j *JSON[T]) decode(raw []byte) error {
	var out T
	if len(raw) == 0 {
		j.Val = out
		return nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("json column: %w", err)
	}
	j.Val = out
	return nil
}

// MarshalJSON renders the wrapped value directly.
func (j JSON[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.Val)
}

// UnmarshalJSON decodes directly into the wrapped value.
func (j *JSON[T]) UnmarshalJSON(raw []byte) error {
	return json.Unmarshal(raw, &j.Val)
}

// GormDataType lets AutoMigrate pick a column type on SQLite.
func (JSON[T]) GormDataType() string {
	return "json"
}

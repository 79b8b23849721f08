package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrorDump is the log-side view of an error: the typed code, every layer of
// the wrap chain and, for storage failures, what the database reported.
type ErrorDump struct {
	TopMessage string
	Code       Code
	Chain      []string

	// Store is "pgx", "pq" or "gorm" when a storage error sits in the chain.
	Store      string
	SQLState   string
	Constraint string
	Table      string
	Detail     string
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case stdErrors.As(err, &pgxErr):
		d.Store = "pgx"
		d.SQLState = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Detail = pgxErr.Detail
	case stdErrors.As(err, &pqErr):
		d.Store = "pq"
		d.SQLState = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Detail = pqErr.Detail
	case stdErrors.Is(err, gorm.ErrRecordNotFound):
		d.Store = "gorm"
		d.Detail = "record not found"
	case stdErrors.Is(err, gorm.ErrDuplicatedKey):
		d.Store = "gorm"
		d.Detail = "duplicated key"
	}
	return d
}

// LogFields flattens the dump for structured logging, leaving out empty
// database fields.
func (d ErrorDump) LogFields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_chain": d.Chain,
	}
	if d.Code != "" {
		fields["error_code"] = string(d.Code)
	}
	if d.Store == "" {
		return fields
	}
	fields["db_store"] = d.Store
	for key, value := range map[string]string{
		"db_sqlstate":   d.SQLState,
		"db_constraint": d.Constraint,
		"db_table":      d.Table,
		"db_detail":     d.Detail,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}

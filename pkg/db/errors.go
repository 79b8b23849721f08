package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure. When
// names are given, the Postgres constraint name or the SQLite message must
// mention one of them.
func IsUniqueViolation(err error, names ...string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		return matchesAny(names, func(name string) bool { return pgErr.ConstraintName == name })
	}
	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return matchesAny(names, func(name string) bool { return strings.Contains(msg, name) })
}

func matchesAny(names []string, match func(string) bool) bool {
	checked := false
	for _, name := range names {
		if name == "" {
			continue
		}
		checked = true
		if match(name) {
			return true
		}
	}
	return !checked
}

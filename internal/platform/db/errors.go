package db

import (
	"errors"

	pgconnv1 "github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally restricted to the named constraint.
func IsUniqueViolation(err error, constraint ...string) bool {
	return matchCode(err, codeUniqueViolation, constraint...)
}

// IsCheckViolation reports whether err is a CHECK constraint violation.
func IsCheckViolation(err error, constraint ...string) bool {
	return matchCode(err, codeCheckViolation, constraint...)
}

func matchCode(err error, code string, constraint ...string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code && constraintMatches(pgErr.ConstraintName, constraint)
	}
	// Errors surfaced through the stdlib bridge of older drivers.
	var legacy *pgconnv1.PgError
	if errors.As(err, &legacy) {
		return legacy.Code == code && constraintMatches(legacy.ConstraintName, constraint)
	}
	return false
}

func constraintMatches(name string, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		if w == name {
			return true
		}
	}
	return false
}

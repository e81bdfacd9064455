package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNumericOverflow     = "22003"
)

// IsUniqueViolation reports a unique violation, optionally on a named constraint or index.
func IsUniqueViolation(err error, constraint string) bool {
	return is(err, codeUniqueViolation, constraint)
}

// IsForeignKeyViolation reports a restrict/no-action foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return is(err, codeForeignKeyViolation, "")
}

func IsCheckViolation(err error) bool {
	return is(err, codeCheckViolation, "")
}

// IsNumericOverflow reports a value too large for its NUMERIC column.
func IsNumericOverflow(err error) bool {
	return is(err, codeNumericOverflow, "")
}

func is(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

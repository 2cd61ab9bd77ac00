package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrUniqueViolation is returned when a unique constraint is violated.
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated.
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrCheckViolation is returned when a check constraint is violated.
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated.
	ErrNotNullViolation = errors.New("not null constraint violation")
)

// ConvertDBError maps driver errors onto the store sentinels. Both the
// lib/pq and pgx error shapes are handled; the constraint class codes are
// the same for either driver.
func ConvertDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return convertPgCode(string(pqErr.Code), pqErr.Detail, pqErr.Column, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return convertPgCode(pgErr.Code, pgErr.Detail, pgErr.ColumnName, err)
	}

	return err
}

func convertPgCode(code, detail, column string, err error) error {
	switch code {
	case "23505": // unique_violation
		return fmt.Errorf("%w: %s", ErrUniqueViolation, detail)
	case "23503": // foreign_key_violation
		return fmt.Errorf("%w: %s", ErrForeignKeyViolation, detail)
	case "23514": // check_violation
		return fmt.Errorf("%w: %s", ErrCheckViolation, detail)
	case "23502": // not_null_violation
		return fmt.Errorf("%w: column %s", ErrNotNullViolation, column)
	default:
		return err
	}
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUniqueViolation reports whether err is ErrUniqueViolation.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

// IsForeignKeyViolation reports whether err is ErrForeignKeyViolation.
func IsForeignKeyViolation(err error) bool {
	return errors.Is(err, ErrForeignKeyViolation)
}

// IsConstraintViolation reports whether err is any store-level constraint
// violation; these surface to callers as conflicts.
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation) ||
		errors.Is(err, ErrForeignKeyViolation) ||
		errors.Is(err, ErrCheckViolation) ||
		errors.Is(err, ErrNotNullViolation)
}

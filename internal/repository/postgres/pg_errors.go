package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/lessonbook/internal/repository"
)

const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeNumericOutOfRange    = "22003"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"

	lessonsSpacesCheck = "lessons_spaces_check"
)

func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return true
		}
	}

	return false
}

func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		case codeUniqueViolation:
			return repository.ErrConflict
		case codeNumericOutOfRange:
			return repository.ErrOutOfRange
		case codeCheckViolation:
			if pge.ConstraintName == lessonsSpacesCheck {
				return repository.ErrInsufficientSpaces
			}
		}
	}

	if IsRetryable(err) {
		return repository.ErrConflict
	}

	return err
}

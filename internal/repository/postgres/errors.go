package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/Pesokrava/game_catalog/internal/domain"
)

// PostgreSQL error codes
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
)

// mapError converts driver errors into domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeForeignKeyViolation:
			return domain.ErrNotFound
		case codeUniqueViolation:
			return domain.ErrConflict
		case codeCheckViolation:
			return domain.ErrInvalidInput
		}
	}
	return err
}

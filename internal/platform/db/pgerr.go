package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quorum-app/quorum/internal/shared"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// TranslateError resolves store-layer failures into the shared taxonomy so
// callers can distinguish duplicates and integrity violations from anything
// unexpected without parsing Postgres error text.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return shared.ErrDuplicate
		case codeForeignKeyViolation:
			return shared.ErrConstraint
		}
	}
	return err
}

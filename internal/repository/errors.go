package repository

import (
	"errors"
	"fmt"

	"supportdesk/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// mapError translates driver errors into entity errors.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, entities.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", what, entities.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: referenced record does not exist: %w", what, entities.ErrInvalidInput)
		case "23514", "22P02": // check_violation, invalid_text_representation
			return fmt.Errorf("%s: %w", what, entities.ErrInvalidInput)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

// requireRow turns a zero-row command into ErrNotFound.
func requireRow(tag pgconn.CommandTag, what string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", what, entities.ErrNotFound)
	}
	return nil
}

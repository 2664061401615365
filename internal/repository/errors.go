package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrStaleState is returned when a compare-and-swap update matched no row
	// because another writer moved the record first.
	ErrStaleState = errors.New("repository: record changed concurrently")
	// ErrAlreadyMaterialized is returned when a service request already owns a job ticket.
	ErrAlreadyMaterialized = errors.New("repository: job ticket already materialized")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func mapWriteError(err error) error {
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

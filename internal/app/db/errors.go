package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// IsNotFound reports whether err means a query matched no row.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

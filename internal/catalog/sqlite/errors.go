package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/dogebooch/extractvault/internal/catalog"
)

// wrapDBError converts sql.ErrNoRows into catalog.ErrNotFound and anything
// else into a catalog.PersistenceError.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.ErrNotFound
	}
	return &catalog.PersistenceError{Op: op, Err: err}
}

// isUniqueConstraint matches on driver error text since ncruces/go-sqlite3
// doesn't expose a typed constraint-kind the way some cgo drivers do.
func isUniqueConstraint(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

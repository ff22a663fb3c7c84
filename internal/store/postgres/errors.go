package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/configmonkey/internal/store"
)

// SQLSTATE codes the store distinguishes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// classify maps a driver error onto the store sentinel errors. onForeignKey
// is what a foreign-key violation means for the statement: ErrNotEmpty for a
// delete blocked by children, ErrNotFound for an insert whose parent is gone.
func classify(op string, err error, onForeignKey error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %s: %w", op, pqErr.Constraint, store.ErrAlreadyExists)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: %s: %w", op, pqErr.Constraint, onForeignKey)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ncruces/go-sqlite3"

	"github.com/alfredjeanlab/configmonkey/internal/store"
)

// isRestrictViolation reports a foreign key enforced by an ON DELETE RESTRICT
// action, which SQLite raises as CONSTRAINT_TRIGGER rather than
// CONSTRAINT_FOREIGNKEY. Databases created with an older schema still carry
// that action.
func isRestrictViolation(err error) bool {
	return errors.Is(err, sqlite3.CONSTRAINT_TRIGGER) &&
		strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// classify maps a driver error onto the store sentinel errors. onForeignKey
// is what a foreign-key violation means for the statement.
func classify(op string, err error, onForeignKey error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case errors.Is(err, sqlite3.CONSTRAINT_UNIQUE), errors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY):
		return fmt.Errorf("%s: %v: %w", op, err, store.ErrAlreadyExists)
	case errors.Is(err, sqlite3.CONSTRAINT_FOREIGNKEY), isRestrictViolation(err):
		return fmt.Errorf("%s: %v: %w", op, err, onForeignKey)
	}
	return fmt.Errorf("%s: %w", op, err)
}

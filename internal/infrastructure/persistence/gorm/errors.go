package gorm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// StoreError is a failed store operation with the recipe or week it concerned
type StoreError struct {
	Op       string
	RecipeID string
	Week     string
	Err      error
}

func (e *StoreError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.RecipeID != "" {
		fmt.Fprintf(&b, " recipe=%s", e.RecipeID)
	}
	if e.Week != "" {
		fmt.Fprintf(&b, " week=%s", e.Week)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// PostgreSQL SQLSTATE codes for constraint violations
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// classify maps driver-specific errors onto the store's error set so that
// callers can test with errors.Is regardless of the database in use.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", outbound.ErrConflict, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return fmt.Errorf("%w: %s (%s)", outbound.ErrConflict, pgErr.Message, pgErr.ConstraintName)
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %v", outbound.ErrConflict, liteErr)
	}

	return err
}

func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: classify(err)}
}

func recipeError(op, id string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, RecipeID: id, Err: classify(err)}
}

func weekError(op, week string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Week: week, Err: classify(err)}
}

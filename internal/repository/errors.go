package repository

import (
	"errors"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres unique_violation, the only constraint class we classify.
const pgUniqueViolation = "23505"

// translateRead maps a lookup failure onto the shared taxonomy so the
// service layer never has to know which store is behind the interface.
func translateRead(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}

// translateWrite wraps every write failure in a WriteError tagged with
// the operation. Unique-index collisions and missing rows come back as
// non-retryable causes; anything else stays retryable.
func translateWrite(op string, err error) error {
	if err == nil {
		return nil
	}
	cause := err
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation:
		cause = models.ErrDuplicate
	case errors.Is(err, gorm.ErrDuplicatedKey):
		cause = models.ErrDuplicate
	case errors.Is(err, gorm.ErrRecordNotFound):
		cause = models.ErrNotFound
	}
	return &models.WriteError{Op: op, Err: cause}
}

package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestTranslateRead(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"Nil error", nil, nil},
		{"Missing row", gorm.ErrRecordNotFound, models.ErrNotFound},
		{"Wrapped missing row", fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateRead(tt.err)
			if got != tt.expected {
				t.Errorf("translateRead(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}

	// Anything else passes through untouched.
	driverErr := errors.New("driver: bad connection")
	if got := translateRead(driverErr); got != driverErr {
		t.Errorf("translateRead passed-through error = %v, want %v", got, driverErr)
	}
}

func TestTranslateWrite(t *testing.T) {
	uniqueViolation := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "idx_messages_owner_client"}

	tests := []struct {
		name      string
		err       error
		cause     error
		retryable bool
	}{
		{"Unique index collision", uniqueViolation, models.ErrDuplicate, false},
		{"Dialect duplicated key", gorm.ErrDuplicatedKey, models.ErrDuplicate, false},
		{"Missing row on update", gorm.ErrRecordNotFound, models.ErrNotFound, false},
		{"Transient driver failure", errors.New("driver: bad connection"), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateWrite("message.create", tt.err)

			var we *models.WriteError
			if !errors.As(got, &we) {
				t.Fatalf("translateWrite(%v) = %T, want *models.WriteError", tt.err, got)
			}
			if we.Op != "message.create" {
				t.Errorf("Op = %q, want %q", we.Op, "message.create")
			}
			if tt.cause != nil && !errors.Is(got, tt.cause) {
				t.Errorf("errors.Is(%v, %v) = false, want true", got, tt.cause)
			}
			if models.IsRetryable(got) != tt.retryable {
				t.Errorf("IsRetryable(%v) = %v, want %v", got, models.IsRetryable(got), tt.retryable)
			}
		})
	}

	if got := translateWrite("message.create", nil); got != nil {
		t.Errorf("translateWrite(nil) = %v, want nil", got)
	}
}

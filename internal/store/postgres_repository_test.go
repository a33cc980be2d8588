package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
	if !isUniqueViolation(unique) {
		t.Fatal("SQLSTATE 23505 must be detected as a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("failed to create user: %w", unique)) {
		t.Fatal("wrapped unique violations must still be detected")
	}

	// The SQLSTATE is authoritative; a message that merely mentions the
	// constraint name is not.
	if isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "users_username_key"`)) {
		t.Fatal("plain errors must not be treated as unique violations")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503", ConstraintName: "users_username_key"}) {
		t.Fatal("other constraint violations must not match")
	}
	if isUniqueViolation(nil) {
		t.Fatal("nil is not a unique violation")
	}
}

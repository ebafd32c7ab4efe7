package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_user_subscriptions_transaction_id"}

	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil error", nil, "", false},
		{"pgx unique violation", pgxErr, "", true},
		{"pgx constraint match", pgxErr, "ux_user_subscriptions_transaction_id", true},
		{"pgx constraint mismatch", pgxErr, "ux_template_purchases_transaction_id", false},
		{"pgx foreign key violation", &pgconn.PgError{Code: "23503"}, "", false},
		{"pgx wrapped", fmt.Errorf("create subscription: %w", pgxErr), "", true},
		{"pq unique violation", &pq.Error{Code: "23505", Constraint: "c"}, "c", true},
		{"sqlite message", errors.New("UNIQUE constraint failed: user_subscriptions.transaction_id"), "", true},
		{"postgres message", errors.New(`duplicate key value violates unique constraint "x"`), "", true},
		{"unrelated error", errors.New("connection refused"), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUniqueViolation(tc.err, tc.constraint))
		})
	}
}

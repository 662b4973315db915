package pgstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/sudo-init-do/fintrade/internal/ledger"
)

func TestNotFoundMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, ledger.ErrNotFound},
		{"bad uuid text", &pgconn.PgError{Code: invalidTextRepresentation}, ledger.ErrNotFound},
		{"wrapped bad uuid text", fmt.Errorf("query: %w", &pgconn.PgError{Code: invalidTextRepresentation}), ledger.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, notFound(tc.err), tc.want)
		})
	}

	other := &pgconn.PgError{Code: uniqueViolation}
	assert.Same(t, other, notFound(other))
}

// A nil pgx.Tx panics if touched, so these also show no query is issued.
func TestMalformedIDsAreNotFound(t *testing.T) {
	tx := &pgTx{}
	ctx := context.Background()

	_, err := tx.UserByID(ctx, "abc")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = tx.KYCDocumentForUpdate(ctx, "abc")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	assert.ErrorIs(t, tx.SetUserRole(ctx, "not-a-uuid", ledger.RoleAdmin), ledger.ErrNotFound)
	assert.ErrorIs(t, tx.SetUserKYCVerified(ctx, "", true), ledger.ErrNotFound)

	assert.True(t, validID(uuid.NewString()))
}

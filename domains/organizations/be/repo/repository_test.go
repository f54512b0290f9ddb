package repo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
)

func TestMapConflict(t *testing.T) {
	t.Parallel()

	uniqueViolation := &pgconn.PgError{Code: "23505", ConstraintName: "organizations_slug_unique"}
	require.ErrorIs(t, mapConflict(uniqueViolation), persistence.ErrConflict)

	wrapped := fmt.Errorf("insert organization: %w", uniqueViolation)
	require.ErrorIs(t, mapConflict(wrapped), persistence.ErrConflict)

	checkViolation := &pgconn.PgError{Code: "23514"}
	require.Equal(t, checkViolation, mapConflict(checkViolation))

	plain := errors.New("connection reset")
	require.Equal(t, plain, mapConflict(plain))

	require.NoError(t, mapConflict(nil))
}

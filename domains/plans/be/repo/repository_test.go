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

	uniqueViolation := &pgconn.PgError{Code: "23505", ConstraintName: "subscription_plans_name_unique"}
	require.ErrorIs(t, mapConflict(uniqueViolation), persistence.ErrConflict)

	wrapped := fmt.Errorf("insert plan: %w", uniqueViolation)
	require.ErrorIs(t, mapConflict(wrapped), persistence.ErrConflict)

	plain := errors.New("connection reset")
	require.Equal(t, plain, mapConflict(plain))

	require.NoError(t, mapConflict(nil))
}

package sqlassets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoreSchemaOrder(t *testing.T) {
	t.Parallel()

	stmts := CoreSchema()
	require.Len(t, stmts, 5)
	require.Contains(t, stmts[0], "subscription_plans")
	require.Contains(t, stmts[1], "organizations")
}

func TestSubscriptionHistoryColumns(t *testing.T) {
	t.Parallel()

	for _, col := range []string{
		"id",
		"organization_id",
		"plan_name",
		"amount",
		"payment_status",
		"payment_date",
		"start_date",
		"end_date",
	} {
		require.True(t, strings.Contains(SubscriptionHistorySQL, col),
			"subscription_history is missing column %q", col)
	}
	require.NotContains(t, SubscriptionHistorySQL, "plan_id")
}

func TestSeedPlansMatchesCatalogColumns(t *testing.T) {
	t.Parallel()

	require.Contains(t, SeedPlansSQL, "INSERT INTO subscription_plans")
	require.Contains(t, SeedPlansSQL, "ON CONFLICT")
}

package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/bkpos-id/bkpos-saas/database"
)

// EnsureCoreSchema applies the embedded DDL in dependency order. Statements
// are idempotent so this is safe to run on every boot.
func EnsureCoreSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range sqlassets.CoreSchema() {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("apply core schema: %w", err)
		}
	}
	return nil
}

// SeedPlanCatalog inserts the default plan catalog, leaving existing rows
// untouched.
func SeedPlanCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, sqlassets.SeedPlansSQL); err != nil {
		return fmt.Errorf("seed plan catalog: %w", err)
	}
	return nil
}

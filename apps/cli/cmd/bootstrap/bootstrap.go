package bootstrap

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
)

// Command groups bootstrap helpers (schema, seed, first super admin).
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap database schema, plan catalog and the first super admin",
	}

	cmd.AddCommand(databaseCommand())
	cmd.AddCommand(superAdminCommand())
	return cmd
}

func databaseCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "database",
		Short: "Apply the core schema and seed the plan catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			if err := persistence.EnsureCoreSchema(ctx, pool); err != nil {
				return err
			}
			if err := persistence.SeedPlanCatalog(ctx, pool); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "schema applied, plan catalog seeded")
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "postgres connection string")
	_ = c.MarkFlagRequired("database-url")

	return c
}

func superAdminCommand() *cobra.Command {
	var (
		databaseURL string
		userID      string
	)

	c := &cobra.Command{
		Use:   "superadmin",
		Short: "Grant the super_admin role to a user",
		Long:  "Grant the super_admin role to an existing auth account. The first super admin must be created here; the API has no unauthenticated path to it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			identityStore, err := persistence.NewIdentityStore(pool)
			if err != nil {
				return fmt.Errorf("init identity store: %w", err)
			}

			if err := identityStore.SetRole(ctx, userID, "super_admin"); err != nil {
				return fmt.Errorf("grant super_admin: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user %s is now super_admin\n", userID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "postgres connection string")
	c.Flags().StringVar(&userID, "user-id", "", "auth account id to promote")
	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("user-id")

	return c
}

package plans

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
)

// Command groups plan catalog helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect the subscription plan catalog",
	}

	cmd.AddCommand(listCommand())
	return cmd
}

func listCommand() *cobra.Command {
	var (
		databaseURL     string
		includeInactive bool
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List subscription plans, cheapest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			planStore, err := persistence.NewPlanStore(pool)
			if err != nil {
				return fmt.Errorf("init plan store: %w", err)
			}

			plans, err := planStore.List(ctx, includeInactive)
			if err != nil {
				return fmt.Errorf("list plans: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMONTHLY\tYEARLY\tUSERS\tPRODUCTS\tRIDERS\tACTIVE")
			for _, p := range plans {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\t%t\n",
					p.Name, p.PriceMonthly, p.PriceYearly,
					capLabel(p.MaxUsers), capLabel(p.MaxProducts), capLabel(p.MaxRiders), p.IsActive)
			}
			return tw.Flush()
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "postgres connection string")
	c.Flags().BoolVar(&includeInactive, "include-inactive", false, "include retired plans")
	_ = c.MarkFlagRequired("database-url")

	return c
}

func capLabel(v int) string {
	if v < 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", v)
}

package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the BK POS admin CLI. Subcommands (auth,
// bootstrap, plans) are attached here.
var rootCmd = &cobra.Command{
	Use:           "bkpos",
	Short:         "BK POS admin CLI",
	Long:          "Administrative utilities for BK POS (dev tokens, database bootstrap, plan catalog).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}

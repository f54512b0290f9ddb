package auth

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bkpos-id/bkpos-saas/platform/go/auth/devtoken"
)

// Command groups auth helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication helpers for local development",
	}

	cmd.AddCommand(devTokenCommand())
	return cmd
}

func devTokenCommand() *cobra.Command {
	var params devtoken.Params
	var secret string
	var expiresIn time.Duration

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Generate an HS256 JWT accepted when AUTH_PROVIDER=dev",
		RunE: func(cmd *cobra.Command, args []string) error {
			params.ExpiresIn = expiresIn

			token, err := devtoken.Build(params, secret, time.Now().UTC())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&params.UserID, "user-id", "", "user_id/sub/uid claim")
	cmd.Flags().StringVar(&params.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&secret, "secret", "", "shared HS256 secret (DEV_JWT_SECRET on the server)")

	cmd.Flags().StringVar(&params.Name, "name", "", "display name")
	cmd.Flags().BoolVar(&params.EmailVerified, "email-verified", true, "email_verified claim")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", time.Hour, "token lifetime (e.g. 30m, 2h)")
	cmd.Flags().StringVar(&params.Issuer, "issuer", "", "override iss; defaults to bkpos-dev")

	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}

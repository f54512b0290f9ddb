package root

import (
	"github.com/bkpos-id/bkpos-saas/apps/cli/cmd/auth"
	"github.com/bkpos-id/bkpos-saas/apps/cli/cmd/bootstrap"
	"github.com/bkpos-id/bkpos-saas/apps/cli/cmd/plans"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(plans.Command())
}

package sqlassets

import _ "embed"

//go:embed schema/core/subscription_plans.sql
var SubscriptionPlansSQL string

//go:embed schema/core/organizations.sql
var OrganizationsSQL string

//go:embed schema/core/subscription_history.sql
var SubscriptionHistorySQL string

//go:embed schema/core/identity.sql
var IdentitySQL string

//go:embed schema/core/inventory.sql
var InventorySQL string

//go:embed seed/subscription_plans.sql
var SeedPlansSQL string

// CoreSchema returns the DDL statements in dependency order.
func CoreSchema() []string {
	return []string{
		SubscriptionPlansSQL,
		OrganizationsSQL,
		SubscriptionHistorySQL,
		IdentitySQL,
		InventorySQL,
	}
}

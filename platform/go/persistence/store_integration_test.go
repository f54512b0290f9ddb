package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestStoresIntegration(t *testing.T) {
	t.Parallel()

	if testing.Short() {
		t.Skip("skipping store integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("bkpos"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(func() {
		ClosePool(pool)
	})

	require.NoError(t, EnsureCoreSchema(ctx, pool))
	require.NoError(t, SeedPlanCatalog(ctx, pool))

	planStore, err := NewPlanStore(pool)
	require.NoError(t, err)
	orgStore, err := NewOrganizationStore(pool)
	require.NoError(t, err)
	subStore, err := NewSubscriptionStore(pool)
	require.NoError(t, err)
	identityStore, err := NewIdentityStore(pool)
	require.NoError(t, err)

	plans, err := planStore.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, plans, 4)
	require.Equal(t, "free", plans[0].Name) // cheapest first

	free, err := planStore.GetByName(ctx, "Free")
	require.NoError(t, err)
	require.EqualValues(t, 0, free.PriceMonthly)
	require.Equal(t, 5, free.MaxUsers)

	pro, err := planStore.GetByName(ctx, "pro")
	require.NoError(t, err)
	require.EqualValues(t, 299000, pro.PriceMonthly)

	// Signup provisioning: organization + ledger + profile + role, one commit.
	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)
	orgID := uuid.New()
	userID := "signup-user-1"

	org, err := identityStore.ProvisionSignup(ctx, SignupProvision{
		Organization: OrganizationRecord{
			ID:                    orgID,
			Slug:                  "kopi-kenangan",
			Name:                  "Kopi Kenangan",
			SubscriptionPlan:      free.Name,
			SubscriptionStatus:    "trial",
			SubscriptionStartDate: &now,
			SubscriptionEndDate:   &end,
			MaxUsers:              free.MaxUsers,
			MaxProducts:           free.MaxProducts,
			MaxRiders:             free.MaxRiders,
			IsActive:              true,
			Branding:              json.RawMessage(`{}`),
			Terminology:           json.RawMessage(`{}`),
			Features:              json.RawMessage(`{}`),
			DashboardLayout:       json.RawMessage(`{}`),
			ReportTemplates:       json.RawMessage(`{}`),
		},
		History: SubscriptionHistoryRecord{
			PlanName:      free.Name,
			Amount:        free.PriceMonthly,
			PaymentStatus: "free",
			StartDate:     now,
			EndDate:       end,
		},
		Profile: ProfileRecord{UserID: userID, FullName: "Siti Rahma", Phone: "+62811111111"},
		Role:    "admin",
	})
	require.NoError(t, err)
	require.Equal(t, orgID, org.ID)
	require.Equal(t, "trial", org.SubscriptionStatus)

	role, err := identityStore.RoleForUser(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "admin", role)

	profile, err := identityStore.GetProfile(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, profile.OrganizationID)
	require.Equal(t, orgID, *profile.OrganizationID)

	latest, err := subStore.LatestForOrg(ctx, orgID)
	require.NoError(t, err)
	require.Equal(t, free.Name, latest.PlanName)
	require.Equal(t, "free", latest.PaymentStatus)

	// A duplicate slug must roll back everything, leaving no partial rows.
	_, err = identityStore.ProvisionSignup(ctx, SignupProvision{
		Organization: OrganizationRecord{
			ID:       uuid.New(),
			Slug:     "kopi-kenangan",
			Name:     "Duplicate",
			IsActive: true,
		},
		History: SubscriptionHistoryRecord{
			PlanName: free.Name, PaymentStatus: "free", StartDate: now, EndDate: end,
		},
		Profile: ProfileRecord{UserID: "signup-user-2"},
		Role:    "admin",
	})
	require.Error(t, err)
	_, err = identityStore.GetProfile(ctx, "signup-user-2")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = identityStore.RoleForUser(ctx, "signup-user-2")
	require.ErrorIs(t, err, ErrNotFound)

	// Plan change: cached fields and ledger move together.
	changed, err := orgStore.ChangePlanWithHistory(ctx, orgID, pro, SubscriptionHistoryRecord{
		PlanName:      pro.Name,
		Amount:        pro.PriceMonthly,
		PaymentStatus: "pending",
		StartDate:     now,
		EndDate:       end,
	})
	require.NoError(t, err)
	require.Equal(t, pro.Name, changed.SubscriptionPlan)
	require.Equal(t, "active", changed.SubscriptionStatus)
	require.Equal(t, pro.MaxUsers, changed.MaxUsers)

	ledger, err := subStore.ListForOrg(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	require.Equal(t, pro.Name, ledger[0].PlanName)
	require.Equal(t, "pending", ledger[0].PaymentStatus)

	// Moving back to a free plan is still a plan change, not a new trial.
	downgraded, err := orgStore.ChangePlanWithHistory(ctx, orgID, free, SubscriptionHistoryRecord{
		PlanName:      free.Name,
		Amount:        free.PriceMonthly,
		PaymentStatus: "free",
		StartDate:     now,
		EndDate:       end,
	})
	require.NoError(t, err)
	require.Equal(t, free.Name, downgraded.SubscriptionPlan)
	require.Equal(t, "active", downgraded.SubscriptionStatus)

	changed, err = orgStore.ChangePlanWithHistory(ctx, orgID, pro, SubscriptionHistoryRecord{
		PlanName:      pro.Name,
		Amount:        pro.PriceMonthly,
		PaymentStatus: "pending",
		StartDate:     now,
		EndDate:       end,
	})
	require.NoError(t, err)
	require.Equal(t, pro.Name, changed.SubscriptionPlan)

	ledger, err = subStore.ListForOrg(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, ledger, 4)

	paid, err := subStore.MarkPaid(ctx, ledger[0].ID, now)
	require.NoError(t, err)
	require.Equal(t, "paid", paid.PaymentStatus)
	require.NotNil(t, paid.PaymentDate)

	// Marking an already-paid row again finds nothing pending.
	_, err = subStore.MarkPaid(ctx, ledger[0].ID, now)
	require.ErrorIs(t, err, ErrNotFound)

	revenue, err := subStore.PaidRevenue(ctx)
	require.NoError(t, err)
	require.EqualValues(t, pro.PriceMonthly, revenue)

	// Changing the plan of a missing organization fails without a ledger row.
	missing := uuid.New()
	_, err = orgStore.ChangePlanWithHistory(ctx, missing, pro, SubscriptionHistoryRecord{
		PlanName: pro.Name, PaymentStatus: "pending", StartDate: now, EndDate: end,
	})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = subStore.LatestForOrg(ctx, missing)
	require.ErrorIs(t, err, ErrNotFound)

	usage, err := orgStore.Usage(ctx, orgID)
	require.NoError(t, err)
	require.Equal(t, 1, usage.Users)
	require.Equal(t, 0, usage.Products)
	require.Equal(t, 0, usage.Riders)

	// Settings payload round-trip.
	updated, err := orgStore.UpdateSettings(ctx, orgID, SettingsPayloads{
		Branding:        json.RawMessage(`{"app_name":"Kopi Kenangan POS"}`),
		Terminology:     json.RawMessage(`{"products":"Menu"}`),
		Features:        json.RawMessage(`{"pos":true}`),
		DashboardLayout: json.RawMessage(`{}`),
		ReportTemplates: json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"app_name":"Kopi Kenangan POS"}`, string(updated.Branding))

	// Deactivation, never deletion.
	deactivated, err := orgStore.SetActive(ctx, orgID, false)
	require.NoError(t, err)
	require.False(t, deactivated.IsActive)

	activeOnly, total, err := orgStore.List(ctx, true, 10, 0)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, activeOnly)

	all, total, err := orgStore.List(ctx, false, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, all, 1)
}

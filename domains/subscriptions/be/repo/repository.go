package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
)

// Repository exposes the persistence operations required by the subscriptions
// service. The plan change goes through the organization store so the cached
// plan fields and the ledger move in one transaction.
type Repository interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (persistence.OrganizationRecord, error)
	GetPlanByName(ctx context.Context, name string) (persistence.PlanRecord, error)
	ChangePlanWithHistory(ctx context.Context, orgID uuid.UUID, plan persistence.PlanRecord, hist persistence.SubscriptionHistoryRecord) (persistence.OrganizationRecord, error)
	LatestForOrg(ctx context.Context, orgID uuid.UUID) (persistence.SubscriptionHistoryRecord, error)
	ListForOrg(ctx context.Context, orgID uuid.UUID) ([]persistence.SubscriptionHistoryRecord, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (persistence.SubscriptionHistoryRecord, error)
	Usage(ctx context.Context, orgID uuid.UUID) (persistence.UsageCounts, error)
	GetProfile(ctx context.Context, userID string) (persistence.ProfileRecord, error)
}

type postgresRepository struct {
	orgs     *persistence.OrganizationStore
	subs     *persistence.SubscriptionStore
	plans    *persistence.PlanStore
	identity *persistence.IdentityStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(orgs *persistence.OrganizationStore, subs *persistence.SubscriptionStore, plans *persistence.PlanStore, identity *persistence.IdentityStore) Repository {
	if orgs == nil {
		panic("organization store is required")
	}
	if subs == nil {
		panic("subscription store is required")
	}
	if plans == nil {
		panic("plan store is required")
	}
	if identity == nil {
		panic("identity store is required")
	}
	return &postgresRepository{orgs: orgs, subs: subs, plans: plans, identity: identity}
}

func (r *postgresRepository) GetOrganization(ctx context.Context, id uuid.UUID) (persistence.OrganizationRecord, error) {
	return r.orgs.Get(ctx, id)
}

func (r *postgresRepository) GetPlanByName(ctx context.Context, name string) (persistence.PlanRecord, error) {
	return r.plans.GetByName(ctx, name)
}

func (r *postgresRepository) ChangePlanWithHistory(ctx context.Context, orgID uuid.UUID, plan persistence.PlanRecord, hist persistence.SubscriptionHistoryRecord) (persistence.OrganizationRecord, error) {
	return r.orgs.ChangePlanWithHistory(ctx, orgID, plan, hist)
}

func (r *postgresRepository) LatestForOrg(ctx context.Context, orgID uuid.UUID) (persistence.SubscriptionHistoryRecord, error) {
	return r.subs.LatestForOrg(ctx, orgID)
}

func (r *postgresRepository) ListForOrg(ctx context.Context, orgID uuid.UUID) ([]persistence.SubscriptionHistoryRecord, error) {
	return r.subs.ListForOrg(ctx, orgID)
}

func (r *postgresRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (persistence.SubscriptionHistoryRecord, error) {
	return r.subs.MarkPaid(ctx, id, paidAt)
}

func (r *postgresRepository) Usage(ctx context.Context, orgID uuid.UUID) (persistence.UsageCounts, error) {
	return r.orgs.Usage(ctx, orgID)
}

func (r *postgresRepository) GetProfile(ctx context.Context, userID string) (persistence.ProfileRecord, error) {
	return r.identity.GetProfile(ctx, userID)
}

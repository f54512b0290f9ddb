package repo

import (
	"context"

	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
)

// Repository exposes the persistence operations required by the signup
// service. Provisioning is one transaction: organization, first ledger row,
// owner profile, and owner role land together or not at all.
type Repository interface {
	GetPlanByName(ctx context.Context, name string) (persistence.PlanRecord, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (persistence.OrganizationRecord, error)
	ProvisionSignup(ctx context.Context, p persistence.SignupProvision) (persistence.OrganizationRecord, error)
	GetProfile(ctx context.Context, userID string) (persistence.ProfileRecord, error)
}

type postgresRepository struct {
	orgs     *persistence.OrganizationStore
	plans    *persistence.PlanStore
	identity *persistence.IdentityStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(orgs *persistence.OrganizationStore, plans *persistence.PlanStore, identity *persistence.IdentityStore) Repository {
	if orgs == nil {
		panic("organization store is required")
	}
	if plans == nil {
		panic("plan store is required")
	}
	if identity == nil {
		panic("identity store is required")
	}
	return &postgresRepository{orgs: orgs, plans: plans, identity: identity}
}

func (r *postgresRepository) GetPlanByName(ctx context.Context, name string) (persistence.PlanRecord, error) {
	return r.plans.GetByName(ctx, name)
}

func (r *postgresRepository) GetOrganizationBySlug(ctx context.Context, slug string) (persistence.OrganizationRecord, error) {
	return r.orgs.GetBySlug(ctx, slug)
}

func (r *postgresRepository) ProvisionSignup(ctx context.Context, p persistence.SignupProvision) (persistence.OrganizationRecord, error) {
	return r.identity.ProvisionSignup(ctx, p)
}

func (r *postgresRepository) GetProfile(ctx context.Context, userID string) (persistence.ProfileRecord, error) {
	return r.identity.GetProfile(ctx, userID)
}

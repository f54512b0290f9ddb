package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
)

// Repository exposes the persistence operations required by the organizations
// service.
type Repository interface {
	List(ctx context.Context, onlyActive bool, limit, offset int) ([]persistence.OrganizationRecord, int, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.OrganizationRecord, error)
	GetBySlug(ctx context.Context, slug string) (persistence.OrganizationRecord, error)
	CreateWithHistory(ctx context.Context, org persistence.OrganizationRecord, hist persistence.SubscriptionHistoryRecord) (persistence.OrganizationRecord, error)
	UpdateInfo(ctx context.Context, id uuid.UUID, name string, description *string) (persistence.OrganizationRecord, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (persistence.OrganizationRecord, error)
	GetPlanByName(ctx context.Context, name string) (persistence.PlanRecord, error)
	ListProfilesForOrg(ctx context.Context, orgID uuid.UUID) ([]persistence.ProfileRecord, error)
	PaidRevenue(ctx context.Context) (int64, error)
}

type postgresRepository struct {
	orgs     *persistence.OrganizationStore
	plans    *persistence.PlanStore
	subs     *persistence.SubscriptionStore
	identity *persistence.IdentityStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(orgs *persistence.OrganizationStore, plans *persistence.PlanStore, subs *persistence.SubscriptionStore, identity *persistence.IdentityStore) Repository {
	if orgs == nil {
		panic("organization store is required")
	}
	if plans == nil {
		panic("plan store is required")
	}
	if subs == nil {
		panic("subscription store is required")
	}
	if identity == nil {
		panic("identity store is required")
	}
	return &postgresRepository{orgs: orgs, plans: plans, subs: subs, identity: identity}
}

func (r *postgresRepository) List(ctx context.Context, onlyActive bool, limit, offset int) ([]persistence.OrganizationRecord, int, error) {
	return r.orgs.List(ctx, onlyActive, limit, offset)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.OrganizationRecord, error) {
	return r.orgs.Get(ctx, id)
}

func (r *postgresRepository) GetBySlug(ctx context.Context, slug string) (persistence.OrganizationRecord, error) {
	return r.orgs.GetBySlug(ctx, slug)
}

func (r *postgresRepository) CreateWithHistory(ctx context.Context, org persistence.OrganizationRecord, hist persistence.SubscriptionHistoryRecord) (persistence.OrganizationRecord, error) {
	rec, err := r.orgs.CreateWithHistory(ctx, org, hist)
	return rec, mapConflict(err)
}

// mapConflict folds a Postgres unique violation into persistence.ErrConflict
// so a slug race between GetBySlug and the insert still surfaces as a
// conflict, not a 500.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return persistence.ErrConflict
	}
	return err
}

func (r *postgresRepository) UpdateInfo(ctx context.Context, id uuid.UUID, name string, description *string) (persistence.OrganizationRecord, error) {
	return r.orgs.UpdateInfo(ctx, id, name, description)
}

func (r *postgresRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (persistence.OrganizationRecord, error) {
	return r.orgs.SetActive(ctx, id, active)
}

func (r *postgresRepository) GetPlanByName(ctx context.Context, name string) (persistence.PlanRecord, error) {
	return r.plans.GetByName(ctx, name)
}

func (r *postgresRepository) ListProfilesForOrg(ctx context.Context, orgID uuid.UUID) ([]persistence.ProfileRecord, error) {
	return r.identity.ListProfilesForOrg(ctx, orgID)
}

func (r *postgresRepository) PaidRevenue(ctx context.Context) (int64, error) {
	return r.subs.PaidRevenue(ctx)
}

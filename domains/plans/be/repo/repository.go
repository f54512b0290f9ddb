package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
)

// Repository exposes the plan-catalog persistence operations required by the
// plans service.
type Repository interface {
	List(ctx context.Context, includeInactive bool) ([]persistence.PlanRecord, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.PlanRecord, error)
	GetByName(ctx context.Context, name string) (persistence.PlanRecord, error)
	Create(ctx context.Context, rec persistence.PlanRecord) (persistence.PlanRecord, error)
	Update(ctx context.Context, rec persistence.PlanRecord) (persistence.PlanRecord, error)
}

type postgresRepository struct {
	store *persistence.PlanStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.PlanStore) Repository {
	if store == nil {
		panic("plan store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) List(ctx context.Context, includeInactive bool) ([]persistence.PlanRecord, error) {
	return r.store.List(ctx, includeInactive)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.PlanRecord, error) {
	return r.store.Get(ctx, id)
}

func (r *postgresRepository) GetByName(ctx context.Context, name string) (persistence.PlanRecord, error) {
	return r.store.GetByName(ctx, name)
}

func (r *postgresRepository) Create(ctx context.Context, rec persistence.PlanRecord) (persistence.PlanRecord, error) {
	created, err := r.store.Create(ctx, rec)
	return created, mapConflict(err)
}

func (r *postgresRepository) Update(ctx context.Context, rec persistence.PlanRecord) (persistence.PlanRecord, error) {
	updated, err := r.store.Update(ctx, rec)
	return updated, mapConflict(err)
}

// mapConflict folds a Postgres unique violation into persistence.ErrConflict
// so a plan-name race between GetByName and the write still surfaces as a
// conflict, not a 500.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return persistence.ErrConflict
	}
	return err
}

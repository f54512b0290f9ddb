package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlanRecord represents a row of the shared plan catalog.
type PlanRecord struct {
	ID           uuid.UUID
	Name         string
	DisplayName  string
	PriceMonthly int64
	PriceYearly  int64
	MaxUsers     int
	MaxProducts  int
	MaxRiders    int
	Features     []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const planColumns = `id, name, display_name, price_monthly, price_yearly,
	max_users, max_products, max_riders, features, is_active, created_at, updated_at`

// PlanStore provides access to the subscription_plans catalog.
type PlanStore struct {
	pool *pgxpool.Pool
}

// NewPlanStore creates a store; assumes the schema already exists.
func NewPlanStore(pool *pgxpool.Pool) (*PlanStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &PlanStore{pool: pool}, nil
}

// List returns the catalog ordered by monthly price; inactive plans are
// included only when requested (super-admin catalog management).
func (s *PlanStore) List(ctx context.Context, includeInactive bool) ([]PlanRecord, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY price_monthly ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlanRecord
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get fetches a plan by id.
func (s *PlanStore) Get(ctx context.Context, id uuid.UUID) (PlanRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1`, id)
	return scanPlanNotFound(row)
}

// GetByName fetches a plan by its canonical lowercase name.
func (s *PlanStore) GetByName(ctx context.Context, name string) (PlanRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE lower(name) = lower($1)`, name)
	return scanPlanNotFound(row)
}

// Create inserts a new catalog entry.
func (s *PlanStore) Create(ctx context.Context, rec PlanRecord) (PlanRecord, error) {
	if rec.ID == uuid.Nil {
		return PlanRecord{}, errors.New("plan id is required")
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO subscription_plans (
			id, name, display_name, price_monthly, price_yearly,
			max_users, max_products, max_riders, features, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING `+planColumns,
		rec.ID, rec.Name, rec.DisplayName, rec.PriceMonthly, rec.PriceYearly,
		rec.MaxUsers, rec.MaxProducts, rec.MaxRiders, rec.Features, rec.IsActive,
	)
	return scanPlan(row)
}

// Update rewrites the mutable catalog fields. Existing organizations keep
// their caps; catalog changes apply only to future subscriptions.
func (s *PlanStore) Update(ctx context.Context, rec PlanRecord) (PlanRecord, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE subscription_plans SET
			display_name = $2, price_monthly = $3, price_yearly = $4,
			max_users = $5, max_products = $6, max_riders = $7,
			features = $8, is_active = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+planColumns,
		rec.ID, rec.DisplayName, rec.PriceMonthly, rec.PriceYearly,
		rec.MaxUsers, rec.MaxProducts, rec.MaxRiders, rec.Features, rec.IsActive,
	)
	return scanPlanNotFound(row)
}

func scanPlan(row pgx.Row) (PlanRecord, error) {
	var rec PlanRecord
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.DisplayName, &rec.PriceMonthly, &rec.PriceYearly,
		&rec.MaxUsers, &rec.MaxProducts, &rec.MaxRiders, &rec.Features,
		&rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}

func scanPlanNotFound(row pgx.Row) (PlanRecord, error) {
	rec, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return PlanRecord{}, ErrNotFound
	}
	return rec, err
}

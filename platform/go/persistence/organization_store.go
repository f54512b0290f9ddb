package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrganizationRecord represents a tenant row. Customization payloads stay as
// raw JSON at this layer; the settings domain owns their shape and defaults.
type OrganizationRecord struct {
	ID                    uuid.UUID
	Slug                  string
	Name                  string
	Description           *string
	SubscriptionPlan      string
	SubscriptionStatus    string
	SubscriptionStartDate *time.Time
	SubscriptionEndDate   *time.Time
	MaxUsers              int
	MaxProducts           int
	MaxRiders             int
	IsActive              bool
	Branding              json.RawMessage
	Terminology           json.RawMessage
	Features              json.RawMessage
	DashboardLayout       json.RawMessage
	ReportTemplates       json.RawMessage
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// SettingsPayloads carries the five customization columns for a settings write.
type SettingsPayloads struct {
	Branding        json.RawMessage
	Terminology     json.RawMessage
	Features        json.RawMessage
	DashboardLayout json.RawMessage
	ReportTemplates json.RawMessage
}

// UsageCounts reports current consumption against plan caps.
type UsageCounts struct {
	Users    int
	Products int
	Riders   int
}

const orgColumns = `id, slug, name, description, subscription_plan, subscription_status,
	subscription_start_date, subscription_end_date, max_users, max_products, max_riders,
	is_active, branding, terminology, features, dashboard_layout, report_templates,
	created_at, updated_at`

// OrganizationStore provides access to the organizations table and owns the
// compound subscription transactions.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

// NewOrganizationStore creates a store; assumes migrations already ran.
func NewOrganizationStore(pool *pgxpool.Pool) (*OrganizationStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &OrganizationStore{pool: pool}, nil
}

// Get fetches an organization by id.
func (s *OrganizationStore) Get(ctx context.Context, id uuid.UUID) (OrganizationRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id)
	return scanOrganizationNotFound(row)
}

// GetBySlug fetches an organization by slug.
func (s *OrganizationStore) GetBySlug(ctx context.Context, slug string) (OrganizationRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE slug = $1`, slug)
	return scanOrganizationNotFound(row)
}

// List returns organizations ordered by creation time, newest first, with an
// optional activation filter.
func (s *OrganizationStore) List(ctx context.Context, onlyActive bool, limit, offset int) ([]OrganizationRecord, int, error) {
	where := ""
	if onlyActive {
		where = " WHERE is_active = TRUE"
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM organizations`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+orgColumns+` FROM organizations`+where+` ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []OrganizationRecord
	for rows.Next() {
		rec, err := scanOrganization(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

// UpdateInfo rewrites the identity fields (name, description).
func (s *OrganizationStore) UpdateInfo(ctx context.Context, id uuid.UUID, name string, description *string) (OrganizationRecord, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE organizations SET name = $2, description = $3, updated_at = now()
		WHERE id = $1 RETURNING `+orgColumns, id, name, description)
	return scanOrganizationNotFound(row)
}

// SetActive flips the activation flag. Organizations are never hard-deleted.
func (s *OrganizationStore) SetActive(ctx context.Context, id uuid.UUID, active bool) (OrganizationRecord, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE organizations SET is_active = $2, updated_at = now()
		WHERE id = $1 RETURNING `+orgColumns, id, active)
	return scanOrganizationNotFound(row)
}

// UpdateSettings rewrites the customization payloads.
func (s *OrganizationStore) UpdateSettings(ctx context.Context, id uuid.UUID, p SettingsPayloads) (OrganizationRecord, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE organizations SET
			branding = $2, terminology = $3, features = $4,
			dashboard_layout = $5, report_templates = $6, updated_at = now()
		WHERE id = $1 RETURNING `+orgColumns,
		id, p.Branding, p.Terminology, p.Features, p.DashboardLayout, p.ReportTemplates)
	return scanOrganizationNotFound(row)
}

// UpdateBranding rewrites only the branding payload (logo uploads).
func (s *OrganizationStore) UpdateBranding(ctx context.Context, id uuid.UUID, branding json.RawMessage) (OrganizationRecord, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE organizations SET branding = $2, updated_at = now()
		WHERE id = $1 RETURNING `+orgColumns, id, branding)
	return scanOrganizationNotFound(row)
}

// CreateWithHistory inserts the organization and its first ledger row in one
// transaction. Either both rows exist afterwards or neither does.
func (s *OrganizationStore) CreateWithHistory(ctx context.Context, org OrganizationRecord, hist SubscriptionHistoryRecord) (OrganizationRecord, error) {
	if org.ID == uuid.Nil {
		return OrganizationRecord{}, errors.New("organization id is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return OrganizationRecord{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out, err := insertOrganization(ctx, tx, org)
	if err != nil {
		return OrganizationRecord{}, err
	}

	hist.OrganizationID = out.ID
	if err := insertHistory(ctx, tx, hist); err != nil {
		return OrganizationRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return OrganizationRecord{}, err
	}
	return out, nil
}

// ChangePlanWithHistory updates the organization's cached subscription fields
// and appends the ledger row in one transaction, so the cache and the ledger
// can never disagree about a plan change. The status always becomes "active";
// the trial window exists only for organizations created on a free plan.
func (s *OrganizationStore) ChangePlanWithHistory(ctx context.Context, id uuid.UUID, plan PlanRecord, hist SubscriptionHistoryRecord) (OrganizationRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return OrganizationRecord{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE organizations SET
			subscription_plan = $2,
			subscription_status = $3,
			subscription_start_date = $4,
			subscription_end_date = $5,
			max_users = $6, max_products = $7, max_riders = $8,
			updated_at = now()
		WHERE id = $1 RETURNING `+orgColumns,
		id, plan.Name, "active", hist.StartDate, hist.EndDate,
		plan.MaxUsers, plan.MaxProducts, plan.MaxRiders)

	out, err := scanOrganizationNotFound(row)
	if err != nil {
		return OrganizationRecord{}, err
	}

	hist.OrganizationID = id
	if err := insertHistory(ctx, tx, hist); err != nil {
		return OrganizationRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return OrganizationRecord{}, err
	}
	return out, nil
}

// Usage counts users, products, and riders for an organization.
func (s *OrganizationStore) Usage(ctx context.Context, id uuid.UUID) (UsageCounts, error) {
	var usage UsageCounts
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM profiles WHERE organization_id = $1),
			(SELECT COUNT(*) FROM products WHERE organization_id = $1 AND is_active = TRUE),
			(SELECT COUNT(*)
			   FROM profiles p
			   JOIN user_roles r ON r.user_id = p.user_id
			  WHERE p.organization_id = $1 AND r.role = 'rider')
	`, id).Scan(&usage.Users, &usage.Products, &usage.Riders)
	return usage, err
}

func insertOrganization(ctx context.Context, tx pgx.Tx, rec OrganizationRecord) (OrganizationRecord, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO organizations (
			id, slug, name, description, subscription_plan, subscription_status,
			subscription_start_date, subscription_end_date,
			max_users, max_products, max_riders, is_active,
			branding, terminology, features, dashboard_layout, report_templates
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING `+orgColumns,
		rec.ID, rec.Slug, rec.Name, rec.Description,
		rec.SubscriptionPlan, rec.SubscriptionStatus,
		rec.SubscriptionStartDate, rec.SubscriptionEndDate,
		rec.MaxUsers, rec.MaxProducts, rec.MaxRiders, rec.IsActive,
		rec.Branding, rec.Terminology, rec.Features, rec.DashboardLayout, rec.ReportTemplates,
	)
	return scanOrganization(row)
}

func scanOrganization(row pgx.Row) (OrganizationRecord, error) {
	var rec OrganizationRecord
	err := row.Scan(
		&rec.ID, &rec.Slug, &rec.Name, &rec.Description,
		&rec.SubscriptionPlan, &rec.SubscriptionStatus,
		&rec.SubscriptionStartDate, &rec.SubscriptionEndDate,
		&rec.MaxUsers, &rec.MaxProducts, &rec.MaxRiders, &rec.IsActive,
		&rec.Branding, &rec.Terminology, &rec.Features,
		&rec.DashboardLayout, &rec.ReportTemplates,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}

func scanOrganizationNotFound(row pgx.Row) (OrganizationRecord, error) {
	rec, err := scanOrganization(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrganizationRecord{}, ErrNotFound
	}
	return rec, err
}

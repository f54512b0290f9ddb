package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionHistoryRecord is one append-only ledger row. Rows are never
// updated or deleted; the latest row for an organization is the authoritative
// subscription state.
type SubscriptionHistoryRecord struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	PlanName       string
	Amount         int64
	PaymentStatus  string
	PaymentDate    *time.Time
	StartDate      time.Time
	EndDate        time.Time
	CreatedAt      time.Time
}

const historyColumns = `id, organization_id, plan_name, amount, payment_status,
	payment_date, start_date, end_date, created_at`

// SubscriptionStore reads the subscription_history ledger. Writes go through
// the OrganizationStore compound transactions.
type SubscriptionStore struct {
	pool *pgxpool.Pool
}

func NewSubscriptionStore(pool *pgxpool.Pool) (*SubscriptionStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &SubscriptionStore{pool: pool}, nil
}

// LatestForOrg returns the most recent ledger row for an organization.
func (s *SubscriptionStore) LatestForOrg(ctx context.Context, orgID uuid.UUID) (SubscriptionHistoryRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+historyColumns+` FROM subscription_history
		WHERE organization_id = $1
		ORDER BY start_date DESC, created_at DESC
		LIMIT 1`, orgID)
	rec, err := scanHistory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return SubscriptionHistoryRecord{}, ErrNotFound
	}
	return rec, err
}

// ListForOrg returns the full ledger for an organization, newest first.
func (s *SubscriptionStore) ListForOrg(ctx context.Context, orgID uuid.UUID) ([]SubscriptionHistoryRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+historyColumns+` FROM subscription_history
		WHERE organization_id = $1
		ORDER BY start_date DESC, created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubscriptionHistoryRecord
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkPaid records payment on a pending ledger row. This is the one mutation
// the ledger allows: payment confirmation, not history rewriting.
func (s *SubscriptionStore) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (SubscriptionHistoryRecord, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE subscription_history
		SET payment_status = 'paid', payment_date = $2
		WHERE id = $1 AND payment_status = 'pending'
		RETURNING `+historyColumns, id, paidAt)
	rec, err := scanHistory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return SubscriptionHistoryRecord{}, ErrNotFound
	}
	return rec, err
}

// PaidRevenue sums paid amounts across the ledger, for the admin dashboard.
func (s *SubscriptionStore) PaidRevenue(ctx context.Context) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM subscription_history WHERE payment_status = 'paid'`,
	).Scan(&total)
	return total, err
}

func insertHistory(ctx context.Context, tx pgx.Tx, rec SubscriptionHistoryRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO subscription_history (
			id, organization_id, plan_name, amount, payment_status,
			payment_date, start_date, end_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.OrganizationID, rec.PlanName, rec.Amount, rec.PaymentStatus,
		rec.PaymentDate, rec.StartDate, rec.EndDate)
	return err
}

func scanHistory(row pgx.Row) (SubscriptionHistoryRecord, error) {
	var rec SubscriptionHistoryRecord
	err := row.Scan(
		&rec.ID, &rec.OrganizationID, &rec.PlanName, &rec.Amount, &rec.PaymentStatus,
		&rec.PaymentDate, &rec.StartDate, &rec.EndDate, &rec.CreatedAt,
	)
	return rec, err
}

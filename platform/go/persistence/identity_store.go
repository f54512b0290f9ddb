package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRecord links an auth identity to its tenant.
type ProfileRecord struct {
	UserID         string
	OrganizationID *uuid.UUID
	FullName       string
	Phone          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LocalCredentialRecord backs the local auth provider (dev and self-hosted
// deployments without Firebase).
type LocalCredentialRecord struct {
	UserID       string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// IdentityStore persists profiles, roles, and local credentials.
type IdentityStore struct {
	pool *pgxpool.Pool
}

func NewIdentityStore(pool *pgxpool.Pool) (*IdentityStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &IdentityStore{pool: pool}, nil
}

// GetProfile fetches a profile by user id.
func (s *IdentityStore) GetProfile(ctx context.Context, userID string) (ProfileRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, organization_id, full_name, phone, created_at, updated_at
		FROM profiles WHERE user_id = $1`, userID)
	return scanProfileNotFound(row)
}

// ListProfilesForOrg returns all member profiles of an organization.
func (s *IdentityStore) ListProfilesForOrg(ctx context.Context, orgID uuid.UUID) ([]ProfileRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, organization_id, full_name, phone, created_at, updated_at
		FROM profiles WHERE organization_id = $1 ORDER BY created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProfileRecord
	for rows.Next() {
		rec, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RoleForUser returns the stored role name, or ErrNotFound when the user has
// no role row. Callers decide what a missing row means; the access layer
// treats it as no access.
func (s *IdentityStore) RoleForUser(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.pool.QueryRow(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}

// SetRole upserts a user's role.
func (s *IdentityStore) SetRole(ctx context.Context, userID, role string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role`, userID, role)
	return err
}

// GetLocalCredential fetches local credentials by email, case-insensitively.
func (s *IdentityStore) GetLocalCredential(ctx context.Context, email string) (LocalCredentialRecord, error) {
	var rec LocalCredentialRecord
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, email, password_hash, created_at
		FROM local_credentials WHERE lower(email) = lower($1)`, email).
		Scan(&rec.UserID, &rec.Email, &rec.PasswordHash, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LocalCredentialRecord{}, ErrNotFound
	}
	return rec, err
}

// CreateLocalCredential inserts a local auth identity.
func (s *IdentityStore) CreateLocalCredential(ctx context.Context, rec LocalCredentialRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO local_credentials (user_id, email, password_hash)
		VALUES ($1, $2, $3)`, rec.UserID, rec.Email, rec.PasswordHash)
	return err
}

// SignupProvision is everything the signup wizard writes after the auth
// identity exists.
type SignupProvision struct {
	Organization OrganizationRecord
	History      SubscriptionHistoryRecord
	Profile      ProfileRecord
	Role         string
}

// ProvisionSignup writes the organization, its first ledger row, the owner's
// profile, and the owner's role in a single transaction. If any write fails
// nothing is committed and the caller is left with only the auth identity,
// which it reports as a retryable provisioning failure.
func (s *IdentityStore) ProvisionSignup(ctx context.Context, p SignupProvision) (OrganizationRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return OrganizationRecord{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	org, err := insertOrganization(ctx, tx, p.Organization)
	if err != nil {
		return OrganizationRecord{}, err
	}

	p.History.OrganizationID = org.ID
	if err := insertHistory(ctx, tx, p.History); err != nil {
		return OrganizationRecord{}, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO profiles (user_id, organization_id, full_name, phone)
		VALUES ($1, $2, $3, $4)`,
		p.Profile.UserID, org.ID, p.Profile.FullName, p.Profile.Phone); err != nil {
		return OrganizationRecord{}, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role`,
		p.Profile.UserID, p.Role); err != nil {
		return OrganizationRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return OrganizationRecord{}, err
	}
	return org, nil
}

func scanProfile(row pgx.Row) (ProfileRecord, error) {
	var rec ProfileRecord
	err := row.Scan(&rec.UserID, &rec.OrganizationID, &rec.FullName, &rec.Phone,
		&rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func scanProfileNotFound(row pgx.Row) (ProfileRecord, error) {
	rec, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProfileRecord{}, ErrNotFound
	}
	return rec, err
}

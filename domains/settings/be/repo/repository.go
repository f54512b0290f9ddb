package repo

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
)

// Repository exposes the persistence operations required by the settings
// service.
type Repository interface {
	GetProfile(ctx context.Context, userID string) (persistence.ProfileRecord, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (persistence.OrganizationRecord, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, payloads persistence.SettingsPayloads) (persistence.OrganizationRecord, error)
	UpdateBranding(ctx context.Context, id uuid.UUID, branding json.RawMessage) (persistence.OrganizationRecord, error)
}

type postgresRepository struct {
	orgs     *persistence.OrganizationStore
	identity *persistence.IdentityStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(orgs *persistence.OrganizationStore, identity *persistence.IdentityStore) Repository {
	if orgs == nil {
		panic("organization store is required")
	}
	if identity == nil {
		panic("identity store is required")
	}
	return &postgresRepository{orgs: orgs, identity: identity}
}

func (r *postgresRepository) GetProfile(ctx context.Context, userID string) (persistence.ProfileRecord, error) {
	return r.identity.GetProfile(ctx, userID)
}

func (r *postgresRepository) GetOrganization(ctx context.Context, id uuid.UUID) (persistence.OrganizationRecord, error) {
	return r.orgs.Get(ctx, id)
}

func (r *postgresRepository) UpdateSettings(ctx context.Context, id uuid.UUID, payloads persistence.SettingsPayloads) (persistence.OrganizationRecord, error) {
	return r.orgs.UpdateSettings(ctx, id, payloads)
}

func (r *postgresRepository) UpdateBranding(ctx context.Context, id uuid.UUID, branding json.RawMessage) (persistence.OrganizationRecord, error) {
	return r.orgs.UpdateBranding(ctx, id, branding)
}

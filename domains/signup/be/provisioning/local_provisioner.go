package provisioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bkpos-id/bkpos-saas/domains/signup/be/service"
	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
)

// LocalAccountProvisioner creates bcrypt-backed identities in the
// local_credentials table, for dev and self-hosted deployments without
// Firebase.
type LocalAccountProvisioner struct {
	identity *persistence.IdentityStore
}

func NewLocalAccountProvisioner(identity *persistence.IdentityStore) *LocalAccountProvisioner {
	if identity == nil {
		panic("local account provisioner requires identity store")
	}
	return &LocalAccountProvisioner{identity: identity}
}

func (p *LocalAccountProvisioner) CreateAccount(ctx context.Context, email, password, _ string) (string, error) {
	if _, err := p.identity.GetLocalCredential(ctx, email); err == nil {
		return "", service.ErrEmailTaken
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	accountID := uuid.NewString()
	if err := p.identity.CreateLocalCredential(ctx, persistence.LocalCredentialRecord{
		UserID:       accountID,
		Email:        email,
		PasswordHash: string(hash),
	}); err != nil {
		return "", fmt.Errorf("store credential: %w", err)
	}
	return accountID, nil
}

var _ service.AccountProvisioner = (*LocalAccountProvisioner)(nil)

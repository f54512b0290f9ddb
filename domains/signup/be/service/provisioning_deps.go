package service

import (
	"context"
	"errors"
)

// Account provisioner errors.
var (
	// ErrEmailTaken means an identity with this email already exists with the
	// auth provider.
	ErrEmailTaken = errors.New("email already registered")
)

// AccountProvisioner creates auth identities. The production implementation
// talks to Firebase; dev and self-hosted deployments use the local
// bcrypt-credential backend.
type AccountProvisioner interface {
	CreateAccount(ctx context.Context, email, password, fullName string) (accountID string, err error)
}

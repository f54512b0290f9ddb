package provisioning

import (
	"context"
	"fmt"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/bkpos-id/bkpos-saas/domains/signup/be/service"
)

// FirebaseAccountProvisioner creates auth identities with Firebase.
type FirebaseAccountProvisioner struct {
	auth *firebaseauth.Client
}

func NewFirebaseAccountProvisioner(auth *firebaseauth.Client) *FirebaseAccountProvisioner {
	if auth == nil {
		panic("firebase account provisioner requires auth client")
	}
	return &FirebaseAccountProvisioner{auth: auth}
}

func (p *FirebaseAccountProvisioner) CreateAccount(ctx context.Context, email, password, fullName string) (string, error) {
	params := (&firebaseauth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(fullName).
		EmailVerified(false)

	user, err := p.auth.CreateUser(ctx, params)
	if err != nil {
		if firebaseauth.IsEmailAlreadyExists(err) {
			return "", service.ErrEmailTaken
		}
		return "", fmt.Errorf("firebase create user: %w", err)
	}
	return user.UID, nil
}

var _ service.AccountProvisioner = (*FirebaseAccountProvisioner)(nil)

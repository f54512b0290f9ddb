package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	signupprov "github.com/bkpos-id/bkpos-saas/domains/signup/be/provisioning"
	signupservice "github.com/bkpos-id/bkpos-saas/domains/signup/be/service"
	platformauth "github.com/bkpos-id/bkpos-saas/platform/go/auth"
	"github.com/bkpos-id/bkpos-saas/platform/go/gcp"
	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
)

// buildAuth constructs the JWT middleware and the matching signup account
// provisioner for the configured auth provider. The two must agree: accounts
// created during signup have to be verifiable by the middleware.
func buildAuth(ctx context.Context, cfg config, identityStore *persistence.IdentityStore, logger *zap.Logger) (func(http.Handler) http.Handler, signupservice.AccountProvisioner) {
	switch cfg.AuthProvider {
	case "firebase":
		_, fbAuth, err := gcp.InitFirebaseAuth(ctx, cfg.FirebaseCredentials)
		if err != nil {
			logger.Fatal("init firebase auth", zap.Error(err))
		}
		verify := platformauth.FirebaseTokenVerifier(fbAuth)
		return platformauth.JWT(verify, platformauth.DefaultCredentialExtractor),
			signupprov.NewFirebaseAccountProvisioner(fbAuth)
	case "dev":
		if cfg.DevJWTSecret == "" {
			logger.Fatal("DEV_JWT_SECRET required when AUTH_PROVIDER=dev")
		}
		logger.Warn("using dev auth middleware; do not use in production")
		verify := platformauth.DevTokenVerifier(cfg.DevJWTSecret)
		return platformauth.JWT(verify, platformauth.DefaultCredentialExtractor),
			signupprov.NewLocalAccountProvisioner(identityStore)
	default:
		logger.Fatal("unsupported auth provider", zap.String("provider", cfg.AuthProvider))
		return nil, nil
	}
}

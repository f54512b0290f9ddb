package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ctxKey string

const ctxUserCredentials ctxKey = "BKPOS_USER_CREDENTIALS"

// UserCredentials carries the verified identity claims for a request. Access
// level is NOT part of the credentials; it is resolved separately from the
// user_roles table so revocations take effect without re-issuing tokens.
type UserCredentials struct {
	Id            string
	Email         string
	EmailVerified bool
	FullName      *string
}

// UserFromContext returns the credentials attached by the JWT middleware.
func UserFromContext(ctx context.Context) (*UserCredentials, bool) {
	v := ctx.Value(ctxUserCredentials)
	if v == nil {
		return nil, false
	}
	u, ok := v.(*UserCredentials)
	return u, ok
}

// WithUser attaches credentials to the context; exported for handler tests.
func WithUser(ctx context.Context, creds *UserCredentials) context.Context {
	return context.WithValue(ctx, ctxUserCredentials, creds)
}

// VerifyFunc validates the incoming JWT and returns its claims map.
type VerifyFunc func(ctx context.Context, token string) (map[string]interface{}, error)

// ExtractFunc converts a claims map into UserCredentials.
type ExtractFunc func(claims map[string]interface{}) (*UserCredentials, error)

// JWT parses the Authorization header and attaches credentials to the request
// context. Requests without a token pass through unauthenticated; gating is
// the guard middleware's job, which keeps public routes on the same chain.
func JWT(verify VerifyFunc, extract ExtractFunc) func(http.Handler) http.Handler {
	if verify == nil {
		panic("auth.JWT: verify func must not be nil")
	}
	if extract == nil {
		extract = DefaultCredentialExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, found := ExtractBearerToken(r)
			if !found {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verify(r.Context(), token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="api", error="invalid_token", error_description="%s"`, err.Error()))
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			creds, err := extract(claims)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="invalid claims"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), creds)))
		})
	}
}

// ExtractBearerToken pulls the bearer token out of the Authorization header.
func ExtractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	const prefix = "Bearer "
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(authHeader[len(prefix):])
	return token, token != ""
}

// DefaultCredentialExtractor converts standard claims into UserCredentials.
func DefaultCredentialExtractor(claims map[string]interface{}) (*UserCredentials, error) {
	if claims == nil {
		return nil, errors.New("missing claims")
	}

	id := fallbackStringClaim(claims, []string{"uid", "user_id", "sub"})
	if id == "" {
		return nil, errors.New("missing subject claim")
	}

	return &UserCredentials{
		Id:            id,
		Email:         stringClaim(claims, "email"),
		EmailVerified: boolClaim(claims, "email_verified"),
		FullName:      optionalStringClaim(claims, "name"),
	}, nil
}

func boolClaim(claims map[string]interface{}, key string) bool {
	v, ok := claims[key].(bool)
	return ok && v
}

func stringClaim(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}

func optionalStringClaim(claims map[string]interface{}, key string) *string {
	if v, ok := claims[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

func fallbackStringClaim(claims map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if v := stringClaim(claims, key); v != "" {
			return v
		}
	}
	return ""
}

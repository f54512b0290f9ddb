package auth

import (
	"context"
	"errors"
	"fmt"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
)

// FirebaseTokenVerifier returns a VerifyFunc that validates ID tokens against
// Firebase Auth.
func FirebaseTokenVerifier(fbAuth *firebaseauth.Client) VerifyFunc {
	return func(ctx context.Context, token string) (map[string]interface{}, error) {
		t, err := fbAuth.VerifyIDToken(ctx, token)
		if err != nil {
			return nil, err
		}

		claims := make(map[string]interface{}, len(t.Claims)+2)
		for k, v := range t.Claims {
			claims[k] = v
		}
		claims["uid"] = t.UID
		claims["sub"] = t.Subject
		return claims, nil
	}
}

// DevTokenVerifier returns a VerifyFunc for HS256 tokens minted by the admin
// CLI. Local and CI use only; the shared secret comes from DEV_JWT_SECRET.
func DevTokenVerifier(secret string) VerifyFunc {
	return func(ctx context.Context, tokenString string) (map[string]interface{}, error) {
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			return nil, err
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			return nil, errors.New("invalid token claims")
		}
		return map[string]interface{}(claims), nil
	}
}

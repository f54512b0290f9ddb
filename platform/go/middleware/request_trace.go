package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	platformauth "github.com/bkpos-id/bkpos-saas/platform/go/auth"
	"github.com/bkpos-id/bkpos-saas/platform/go/requesttrace"
)

// RequestTrace attaches actor metadata to the request context so service
// layers can audit ledger writes. Runs after the JWT middleware; requests
// without credentials are recorded as anonymous.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := chimw.GetReqID(r.Context())

		audit := requesttrace.Anonymous(requestID)
		if creds, ok := platformauth.UserFromContext(r.Context()); ok && creds != nil {
			if fromCreds, err := requesttrace.FromCredentials(creds, requestID); err == nil {
				audit = fromCreds
			}
		}

		next.ServeHTTP(w, r.WithContext(requesttrace.IntoContext(r.Context(), audit)))
	})
}

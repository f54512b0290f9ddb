package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	platformauth "github.com/bkpos-id/bkpos-saas/platform/go/auth"
	"github.com/bkpos-id/bkpos-saas/platform/go/auth/devtoken"
	"github.com/bkpos-id/bkpos-saas/platform/go/requesttrace"
)

const testSecret = "request-trace-test-secret"

func TestRequestTraceWithAuth(t *testing.T) {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(platformauth.JWT(platformauth.DevTokenVerifier(testSecret), nil))
	r.Use(RequestTrace)

	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		audit, ok := requesttrace.FromContext(req.Context())
		require.True(t, ok)
		require.Equal(t, requesttrace.ActorKindUser, audit.ActorKind)
		require.NotNil(t, audit.UserID)
		require.Equal(t, "user-123", *audit.UserID)
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/test", handler)

	token, err := devtoken.Build(devtoken.Params{
		UserID: "user-123",
		Email:  "user@example.com",
	}, testSecret, time.Now().UTC())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
}

func TestRequestTraceAnonymous(t *testing.T) {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestTrace)

	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		audit, ok := requesttrace.FromContext(req.Context())
		require.True(t, ok)
		require.Equal(t, requesttrace.ActorKindAnonymous, audit.ActorKind)
		require.Nil(t, audit.UserID)
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/test", handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
}

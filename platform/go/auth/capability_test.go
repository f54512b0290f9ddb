package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubLookup struct {
	role  Role
	err   error
	calls int
}

func (s *stubLookup) RoleForUser(ctx context.Context, userID string) (Role, error) {
	s.calls++
	return s.role, s.err
}

func TestCapabilitiesForRole(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		role          Role
		isRider       bool
		canAdmin      bool
		canSuperAdmin bool
	}{
		{role: RoleNone},
		{role: RoleRider, isRider: true},
		{role: RoleAdmin, canAdmin: true},
		{role: RoleSuperAdmin, canAdmin: true, canSuperAdmin: true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.role), func(t *testing.T) {
			caps := CapabilitiesForRole(tc.role)
			require.Equal(t, tc.isRider, caps.IsRider)
			require.Equal(t, tc.canAdmin, caps.CanAdmin)
			require.Equal(t, tc.canSuperAdmin, caps.CanSuperAdmin)
		})
	}
}

func TestRoleFromStringUnknownDegradesToNone(t *testing.T) {
	t.Parallel()

	require.Equal(t, RoleNone, RoleFromString("owner"))
	require.Equal(t, RoleNone, RoleFromString(""))
	require.Equal(t, RoleSuperAdmin, RoleFromString("super_admin"))
}

func TestResolverFailsClosedOnLookupError(t *testing.T) {
	t.Parallel()

	lookup := &stubLookup{role: RoleAdmin, err: errors.New("db down")}
	resolver := NewResolver(lookup, zaptest.NewLogger(t), 0)

	caps := resolver.Resolve(context.Background(), "user-1")
	require.Equal(t, RoleNone, caps.Role)
	require.False(t, caps.CanAdmin)
}

func TestResolverCachesWithinTTL(t *testing.T) {
	t.Parallel()

	lookup := &stubLookup{role: RoleAdmin}
	resolver := NewResolver(lookup, zaptest.NewLogger(t), time.Minute)

	first := resolver.Resolve(context.Background(), "user-1")
	second := resolver.Resolve(context.Background(), "user-1")
	require.Equal(t, first, second)
	require.Equal(t, 1, lookup.calls)

	resolver.Invalidate("user-1")
	resolver.Resolve(context.Background(), "user-1")
	require.Equal(t, 2, lookup.calls)
}

func TestGuardsRejectByLevel(t *testing.T) {
	t.Parallel()

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	testCases := []struct {
		name       string
		guard      func(http.Handler) http.Handler
		creds      *UserCredentials
		caps       Capabilities
		wantStatus int
	}{
		{
			name:       "unauthenticated rejected",
			guard:      RequireAuthenticated(),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "authenticated passes basic guard",
			guard:      RequireAuthenticated(),
			creds:      &UserCredentials{Id: "user-1"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "rider blocked from admin",
			guard:      RequireAdmin(),
			creds:      &UserCredentials{Id: "user-1"},
			caps:       CapabilitiesForRole(RoleRider),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "admin blocked from super admin",
			guard:      RequireSuperAdmin(),
			creds:      &UserCredentials{Id: "user-1"},
			caps:       CapabilitiesForRole(RoleAdmin),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "super admin passes admin guard",
			guard:      RequireAdmin(),
			creds:      &UserCredentials{Id: "user-1"},
			caps:       CapabilitiesForRole(RoleSuperAdmin),
			wantStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			ctx := req.Context()
			if tc.creds != nil {
				ctx = WithUser(ctx, tc.creds)
				ctx = context.WithValue(ctx, capsKey{}, tc.caps)
			}

			resp := httptest.NewRecorder()
			tc.guard(ok).ServeHTTP(resp, req.WithContext(ctx))
			require.Equal(t, tc.wantStatus, resp.Code)
		})
	}
}

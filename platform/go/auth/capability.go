package auth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bkpos-id/bkpos-saas/platform/go/problem"
)

// Role is the access level stored in user_roles. Absence of a row is RoleNone.
type Role string

const (
	RoleNone       Role = "none"
	RoleRider      Role = "rider"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// RoleFromString maps a stored value to a Role; unknown values degrade to none.
func RoleFromString(s string) Role {
	switch Role(s) {
	case RoleRider, RoleAdmin, RoleSuperAdmin:
		return Role(s)
	default:
		return RoleNone
	}
}

// Capabilities is the closed set of permission flags every gated view
// consumes. Derived from a single role row; no other inputs.
type Capabilities struct {
	Role          Role
	IsRider       bool
	CanAdmin      bool
	CanSuperAdmin bool
}

// CapabilitiesForRole expands a role into its permission flags. Super admins
// imply admin, mirroring the original gating rules.
func CapabilitiesForRole(role Role) Capabilities {
	return Capabilities{
		Role:          role,
		IsRider:       role == RoleRider,
		CanAdmin:      role == RoleAdmin || role == RoleSuperAdmin,
		CanSuperAdmin: role == RoleSuperAdmin,
	}
}

// RoleLookup fetches the single role row for a user. Implementations return
// RoleNone (not an error) when no row exists.
type RoleLookup interface {
	RoleForUser(ctx context.Context, userID string) (Role, error)
}

// Resolver turns credentials into Capabilities, failing closed: any lookup
// error resolves to RoleNone. Results are cached briefly so the guard does
// not hit the role table on every navigation.
type Resolver struct {
	lookup RoleLookup
	logger *zap.Logger
	ttl    time.Duration

	mu    sync.Mutex
	cache map[string]cachedRole
}

type cachedRole struct {
	caps    Capabilities
	expires time.Time
}

// NewResolver constructs a Resolver. A zero ttl disables caching.
func NewResolver(lookup RoleLookup, logger *zap.Logger, ttl time.Duration) *Resolver {
	if lookup == nil {
		panic("role lookup is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Resolver{
		lookup: lookup,
		logger: logger,
		ttl:    ttl,
		cache:  make(map[string]cachedRole),
	}
}

// Resolve returns the capabilities for a user id.
func (r *Resolver) Resolve(ctx context.Context, userID string) Capabilities {
	if r.ttl > 0 {
		r.mu.Lock()
		if entry, ok := r.cache[userID]; ok && time.Now().Before(entry.expires) {
			r.mu.Unlock()
			return entry.caps
		}
		r.mu.Unlock()
	}

	role, err := r.lookup.RoleForUser(ctx, userID)
	if err != nil {
		// Fail closed: a broken role lookup must never grant access.
		r.logger.Warn("role lookup failed; treating as no role",
			zap.String("user_id", userID), zap.Error(err))
		role = RoleNone
	}

	caps := CapabilitiesForRole(role)

	if r.ttl > 0 {
		r.mu.Lock()
		r.cache[userID] = cachedRole{caps: caps, expires: time.Now().Add(r.ttl)}
		r.mu.Unlock()
	}

	return caps
}

// Invalidate drops the cached entry for a user, e.g. after a role change.
func (r *Resolver) Invalidate(userID string) {
	r.mu.Lock()
	delete(r.cache, userID)
	r.mu.Unlock()
}

type capsKey struct{}

// CapabilitiesFromContext returns the flags attached by WithCapabilities.
func CapabilitiesFromContext(ctx context.Context) (Capabilities, bool) {
	caps, ok := ctx.Value(capsKey{}).(Capabilities)
	return caps, ok
}

// WithCapabilities resolves and attaches permission flags for authenticated
// requests. Unauthenticated requests pass through untouched.
func WithCapabilities(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, ok := UserFromContext(r.Context())
			if !ok || creds == nil {
				next.ServeHTTP(w, r)
				return
			}
			caps := resolver.Resolve(r.Context(), creds.Id)
			ctx := context.WithValue(r.Context(), capsKey{}, caps)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated rejects requests with no session (401, client
// redirects to login).
func RequireAuthenticated() func(http.Handler) http.Handler {
	return guard(func(Capabilities) bool { return true })
}

// RequireAdmin gates admin views: admins and super admins pass.
func RequireAdmin() func(http.Handler) http.Handler {
	return guard(func(c Capabilities) bool { return c.CanAdmin })
}

// RequireSuperAdmin gates platform administration views.
func RequireSuperAdmin() func(http.Handler) http.Handler {
	return guard(func(c Capabilities) bool { return c.CanSuperAdmin })
}

func guard(allowed func(Capabilities) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, ok := UserFromContext(r.Context())
			if !ok || creds == nil {
				problem.Write(w, problem.New(problem.TypeUnauthorized, "Authentication required", http.StatusUnauthorized))
				return
			}

			caps, _ := CapabilitiesFromContext(r.Context())
			if !allowed(caps) {
				// Denial is a rendered outcome, not an error: same body shape
				// regardless of which requirement was unmet.
				problem.Write(w, problem.New(problem.TypeForbidden, "Insufficient role", http.StatusForbidden).
					WithDetail("this view requires a higher access level"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Package requesttrace carries request-scoped actor metadata for auditing
// ledger writes (who created an organization, who changed a plan).
package requesttrace

import (
	"context"
	"errors"

	platformauth "github.com/bkpos-id/bkpos-saas/platform/go/auth"
)

type contextKey string

const ctxAuditInfo contextKey = "BKPOS_REQUEST_TRACE"

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo captures request-scoped metadata for traceability. UserID is set
// only when ActorKind is user; RequestID is optional but encouraged.
type AuditInfo struct {
	ActorKind ActorKind
	UserID    *string
	RequestID string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when absent.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	v := ctx.Value(ctxAuditInfo)
	if v == nil {
		return AuditInfo{}, false
	}
	audit, ok := v.(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the stored AuditInfo, or an anonymous record.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// FromCredentials builds an AuditInfo from authenticated credentials.
func FromCredentials(creds *platformauth.UserCredentials, requestID string) (AuditInfo, error) {
	if creds == nil {
		return AuditInfo{}, errors.New("credentials are required to build audit info")
	}
	if creds.Id == "" {
		return AuditInfo{}, errors.New("user id is required to build audit info")
	}
	return AuditInfo{
		ActorKind: ActorKindUser,
		UserID:    &creds.Id,
		RequestID: requestID,
	}, nil
}

// Anonymous builds an AuditInfo for unauthenticated requests (e.g., signup).
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

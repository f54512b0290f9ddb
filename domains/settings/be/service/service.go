package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainrepo "github.com/bkpos-id/bkpos-saas/domains/settings/be/repo"
	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
	"github.com/bkpos-id/bkpos-saas/platform/go/requesttrace"
	"github.com/bkpos-id/bkpos-saas/platform/go/storage"
)

// Domain-level error sentinel values.
var (
	ErrNoOrganization = errors.New("user is not a member of any organization")
	ErrOrgNotFound    = errors.New("organization not found")

	// ErrMigrationRequired marks an organization row from before the
	// customization columns existed. Resolve still returns full defaults
	// alongside it so callers stay usable.
	ErrMigrationRequired = errors.New("organization row predates customization columns")
)

// ValidationError carries per-payload schema violations.
type ValidationError struct {
	Fields map[string][]string
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Resolved is the merged settings view for one organization.
type Resolved struct {
	OrganizationID   uuid.UUID
	OrganizationName string
	Branding         Branding
	Terminology      Terminology
	Features         Features
	DashboardLayout  DashboardLayout
}

// UpdateInput carries the payloads to rewrite; nil payloads keep the stored
// value.
type UpdateInput struct {
	Branding        json.RawMessage
	Terminology     json.RawMessage
	Features        json.RawMessage
	DashboardLayout json.RawMessage
	ReportTemplates json.RawMessage
}

// AssetUpload is a branding file (logo or favicon) to store.
type AssetUpload struct {
	Kind        string // "logo" or "favicon"
	ContentType string
	Filename    string
	Body        io.Reader
}

// Service resolves and updates per-organization settings.
type Service interface {
	ResolveForUser(ctx context.Context, audit requesttrace.AuditInfo) (Resolved, error)
	ResolveForOrg(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID) (Resolved, error)
	Update(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID, input UpdateInput) (Resolved, error)
	UploadBrandingAsset(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID, upload AssetUpload) (Resolved, error)
}

type cacheEntry struct {
	resolved  Resolved
	err       error
	expiresAt time.Time
}

type service struct {
	repo      domainrepo.Repository
	blobs     storage.BlobStore
	validator *payloadValidator
	logger    *zap.Logger
	now       func() time.Time

	// Advisory read cache, the server-side analog of the client keeping
	// resolved settings in localStorage. Never consulted for writes.
	cacheTTL time.Duration
	mu       sync.Mutex
	cache    map[uuid.UUID]cacheEntry
}

// New builds a settings Service. cacheTTL bounds how stale a resolved view
// may be served; zero disables the cache.
func New(repo domainrepo.Repository, blobs storage.BlobStore, logger *zap.Logger, cacheTTL time.Duration) (Service, error) {
	if repo == nil {
		panic("settings repository is required")
	}
	if blobs == nil {
		panic("blob store is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	validator, err := newPayloadValidator()
	if err != nil {
		return nil, fmt.Errorf("compile settings schemas: %w", err)
	}

	return &service{
		repo:      repo,
		blobs:     blobs,
		validator: validator,
		logger:    logger,
		now:       time.Now,
		cacheTTL:  cacheTTL,
		cache:     make(map[uuid.UUID]cacheEntry),
	}, nil
}

// ResolveForUser walks caller -> profile -> organization -> merged settings.
func (s *service) ResolveForUser(ctx context.Context, audit requesttrace.AuditInfo) (Resolved, error) {
	if audit.UserID == nil {
		return Resolved{}, ErrNoOrganization
	}
	profile, err := s.repo.GetProfile(ctx, *audit.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Resolved{}, ErrNoOrganization
		}
		return Resolved{}, err
	}
	if profile.OrganizationID == nil {
		return Resolved{}, ErrNoOrganization
	}
	return s.ResolveForOrg(ctx, audit, *profile.OrganizationID)
}

// ResolveForOrg merges the organization's stored payloads over the defaults,
// payload by payload and field by field. A pre-migration row (all payloads
// absent) returns full defaults together with ErrMigrationRequired.
func (s *service) ResolveForOrg(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID) (Resolved, error) { //nolint:revive
	if entry, ok := s.cached(orgID); ok {
		return entry.resolved, entry.err
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Resolved{}, ErrOrgNotFound
		}
		return Resolved{}, err
	}

	resolved, resolveErr := s.merge(org)
	s.store(orgID, resolved, resolveErr)
	return resolved, resolveErr
}

// Update validates and persists the provided payloads, keeping absent ones,
// then invalidates the cache.
func (s *service) Update(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID, input UpdateInput) (Resolved, error) {
	violations := map[string][]string{}
	for name, payload := range map[string]json.RawMessage{
		"branding":         input.Branding,
		"terminology":      input.Terminology,
		"features":         input.Features,
		"dashboard_layout": input.DashboardLayout,
	} {
		if err := s.validator.validate(name, payload); err != nil {
			violations[name] = append(violations[name], err.Error())
		}
	}
	if len(violations) > 0 {
		return Resolved{}, &ValidationError{Fields: violations}
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Resolved{}, ErrOrgNotFound
		}
		return Resolved{}, err
	}

	payloads := persistence.SettingsPayloads{
		Branding:        pick(input.Branding, org.Branding),
		Terminology:     pick(input.Terminology, org.Terminology),
		Features:        pick(input.Features, org.Features),
		DashboardLayout: pick(input.DashboardLayout, org.DashboardLayout),
		ReportTemplates: pick(input.ReportTemplates, org.ReportTemplates),
	}

	updated, err := s.repo.UpdateSettings(ctx, orgID, payloads)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Resolved{}, ErrOrgNotFound
		}
		return Resolved{}, err
	}

	s.invalidate(orgID)
	s.logger.Info("organization settings updated",
		zap.String("organization_id", orgID.String()),
		zap.Stringp("actor", audit.UserID),
	)
	return s.merge(updated)
}

// UploadBrandingAsset stores the file and persists its URL into the branding
// payload.
func (s *service) UploadBrandingAsset(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID, upload AssetUpload) (Resolved, error) {
	if upload.Kind != "logo" && upload.Kind != "favicon" {
		return Resolved{}, &ValidationError{Fields: map[string][]string{
			"kind": {"kind must be logo or favicon"},
		}}
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Resolved{}, ErrOrgNotFound
		}
		return Resolved{}, err
	}

	ext := path.Ext(upload.Filename)
	if ext == "" {
		ext = ".png"
	}
	key := fmt.Sprintf("orgs/%s/branding/%s%s", orgID, upload.Kind, ext)

	url, err := s.blobs.Put(ctx, key, upload.ContentType, upload.Body)
	if err != nil {
		return Resolved{}, fmt.Errorf("store branding asset: %w", err)
	}

	branding := DefaultBranding()
	if !isNullPayload(org.Branding) {
		if err := json.Unmarshal(org.Branding, &branding); err != nil {
			return Resolved{}, fmt.Errorf("decode stored branding: %w", err)
		}
	}
	switch upload.Kind {
	case "logo":
		branding.LogoURL = &url
	case "favicon":
		branding.FaviconURL = &url
	}

	raw, err := json.Marshal(branding)
	if err != nil {
		return Resolved{}, err
	}

	updated, err := s.repo.UpdateBranding(ctx, orgID, raw)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Resolved{}, ErrOrgNotFound
		}
		return Resolved{}, err
	}

	s.invalidate(orgID)
	s.logger.Info("branding asset uploaded",
		zap.String("organization_id", orgID.String()),
		zap.String("kind", upload.Kind),
		zap.Stringp("actor", audit.UserID),
	)
	return s.merge(updated)
}

func (s *service) merge(org persistence.OrganizationRecord) (Resolved, error) {
	resolved := Resolved{
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		Branding:         DefaultBranding(),
		Terminology:      DefaultTerminology(),
		Features:         DefaultFeatures(),
		DashboardLayout:  DefaultDashboardLayout(),
	}

	allAbsent := true
	for name, pair := range map[string]struct {
		raw    json.RawMessage
		target any
	}{
		"branding":         {org.Branding, &resolved.Branding},
		"terminology":      {org.Terminology, &resolved.Terminology},
		"features":         {org.Features, &resolved.Features},
		"dashboard_layout": {org.DashboardLayout, &resolved.DashboardLayout},
	} {
		if isNullPayload(pair.raw) {
			continue
		}
		allAbsent = false
		// Unmarshal over the pre-filled defaults: fields present in the
		// payload win, absent fields keep their default.
		if err := json.Unmarshal(pair.raw, pair.target); err != nil {
			return Resolved{}, fmt.Errorf("decode stored %s: %w", name, err)
		}
	}

	if allAbsent && isNullPayload(org.ReportTemplates) {
		return resolved, ErrMigrationRequired
	}
	return resolved, nil
}

func (s *service) cached(orgID uuid.UUID) (cacheEntry, bool) {
	if s.cacheTTL <= 0 {
		return cacheEntry{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[orgID]
	if !ok || s.now().After(entry.expiresAt) {
		return cacheEntry{}, false
	}
	return entry, true
}

func (s *service) store(orgID uuid.UUID, resolved Resolved, err error) {
	if s.cacheTTL <= 0 {
		return
	}
	// Only the distinct migration signal is worth caching among errors.
	if err != nil && !errors.Is(err, ErrMigrationRequired) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[orgID] = cacheEntry{resolved: resolved, err: err, expiresAt: s.now().Add(s.cacheTTL)}
}

func (s *service) invalidate(orgID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, orgID)
}

func pick(incoming, current json.RawMessage) json.RawMessage {
	if len(incoming) > 0 {
		return incoming
	}
	if len(current) > 0 {
		return current
	}
	return json.RawMessage(`null`)
}

func isNullPayload(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

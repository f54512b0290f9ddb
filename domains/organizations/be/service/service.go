package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainrepo "github.com/bkpos-id/bkpos-saas/domains/organizations/be/repo"
	signupservice "github.com/bkpos-id/bkpos-saas/domains/signup/be/service"
	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
	"github.com/bkpos-id/bkpos-saas/platform/go/requesttrace"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError captures input validation problems surfaced by the service.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain-level error sentinel values.
var (
	ErrNotFound     = errors.New("organization not found")
	ErrConflictSlug = errors.New("organization slug already in use")
	ErrPlanUnknown  = errors.New("unknown subscription plan")
)

const (
	subscriptionTerm = 30 * 24 * time.Hour
	defaultPageSize  = 20
	maxPageSize      = 100
)

// Organization is the admin view of a tenant.
type Organization struct {
	ID                 uuid.UUID
	Slug               string
	Name               string
	Description        *string
	SubscriptionPlan   string
	SubscriptionStatus string
	StartDate          *time.Time
	EndDate            *time.Time
	MaxUsers           int
	MaxProducts        int
	MaxRiders          int
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Member is one profile belonging to a tenant.
type Member struct {
	UserID   string
	FullName string
	Phone    string
	JoinedAt time.Time
}

// CreateInput defines the payload to provision a tenant from the admin
// console. Unlike signup there is no identity step.
type CreateInput struct {
	Name        string
	Slug        string
	Description *string
	Plan        string
}

// UpdateInput defines the mutable identity fields.
type UpdateInput struct {
	Name        *string
	Description *string
}

// ListParams filter and paginate the tenant list.
type ListParams struct {
	OnlyActive bool
	Limit      int
	Offset     int
}

// Stats is the platform overview for the super-admin dashboard.
type Stats struct {
	TotalOrganizations  int
	ActiveOrganizations int
	PaidRevenue         int64
}

// Service exposes the tenant administration operations.
type Service interface {
	List(ctx context.Context, audit requesttrace.AuditInfo, params ListParams) ([]Organization, int, error)
	Get(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) (Organization, error)
	Create(ctx context.Context, audit requesttrace.AuditInfo, input CreateInput) (Organization, error)
	Update(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, input UpdateInput) (Organization, error)
	SetActive(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, active bool) (Organization, error)
	Members(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) ([]Member, error)
	Stats(ctx context.Context, audit requesttrace.AuditInfo) (Stats, error)
}

type service struct {
	repo   domainrepo.Repository
	logger *zap.Logger
	now    func() time.Time
}

// New builds an organizations Service backed by the provided repository.
func New(repo domainrepo.Repository, logger *zap.Logger) Service {
	if repo == nil {
		panic("organizations repository is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &service{repo: repo, logger: logger, now: time.Now}
}

func (s *service) List(ctx context.Context, audit requesttrace.AuditInfo, params ListParams) ([]Organization, int, error) { //nolint:revive
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	records, total, err := s.repo.List(ctx, params.OnlyActive, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	orgs := make([]Organization, 0, len(records))
	for _, record := range records {
		orgs = append(orgs, mapOrganization(record))
	}
	return orgs, total, nil
}

func (s *service) Get(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) (Organization, error) { //nolint:revive
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, err
	}
	return mapOrganization(record), nil
}

// Create provisions a tenant with its first ledger row in one transaction:
// the same compound write signup uses, minus the identity step. Free plans
// start in trial, paid plans active.
func (s *service) Create(ctx context.Context, audit requesttrace.AuditInfo, input CreateInput) (Organization, error) {
	normalized, validationErr := validateCreateInput(input)
	if validationErr != nil {
		return Organization{}, validationErr
	}

	plan, err := s.repo.GetPlanByName(ctx, input.Plan)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Organization{}, ErrPlanUnknown
		}
		return Organization{}, err
	}

	if _, err := s.repo.GetBySlug(ctx, normalized.slug); err == nil {
		return Organization{}, ErrConflictSlug
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return Organization{}, err
	}

	now := s.now().UTC()
	end := now.Add(subscriptionTerm)

	status := "active"
	paymentStatus := "pending"
	if plan.PriceMonthly == 0 {
		status = "trial"
		paymentStatus = "free"
	}

	hist := persistence.SubscriptionHistoryRecord{
		ID:            uuid.New(),
		PlanName:      plan.Name,
		Amount:        plan.PriceMonthly,
		PaymentStatus: paymentStatus,
		StartDate:     now,
		EndDate:       end,
	}
	if paymentStatus == "free" {
		hist.PaymentDate = &now
	}

	record, err := s.repo.CreateWithHistory(ctx, persistence.OrganizationRecord{
		ID:                    uuid.New(),
		Slug:                  normalized.slug,
		Name:                  normalized.name,
		Description:           input.Description,
		SubscriptionPlan:      plan.Name,
		SubscriptionStatus:    status,
		SubscriptionStartDate: &now,
		SubscriptionEndDate:   &end,
		MaxUsers:              plan.MaxUsers,
		MaxProducts:           plan.MaxProducts,
		MaxRiders:             plan.MaxRiders,
		IsActive:              true,
		Branding:              mustJSON(signupservice.BrandingPreset()),
		Terminology:           mustJSON(signupservice.TerminologyPreset("other")),
		Features:              mustJSON(signupservice.FeaturesPreset(plan.Name)),
		DashboardLayout:       mustJSON(map[string]any{}),
		ReportTemplates:       mustJSON(map[string]any{}),
	}, hist)
	if err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			return Organization{}, ErrConflictSlug
		}
		return Organization{}, err
	}

	s.logger.Info("organization created",
		zap.String("organization_id", record.ID.String()),
		zap.String("slug", record.Slug),
		zap.String("plan", plan.Name),
		zap.Stringp("actor", audit.UserID),
	)
	return mapOrganization(record), nil
}

func (s *service) Update(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, input UpdateInput) (Organization, error) { //nolint:revive
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, err
	}

	name := current.Name
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return Organization{}, &ValidationError{Fields: FieldErrors{"name": {"name is required"}}}
		}
		name = trimmed
	}
	description := current.Description
	if input.Description != nil {
		description = input.Description
	}

	record, err := s.repo.UpdateInfo(ctx, id, name, description)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, err
	}
	return mapOrganization(record), nil
}

// SetActive deactivates or reactivates a tenant. Organizations are never
// deleted; their data stays for reactivation.
func (s *service) SetActive(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, active bool) (Organization, error) {
	record, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, err
	}

	s.logger.Info("organization activation changed",
		zap.String("organization_id", id.String()),
		zap.Bool("active", active),
		zap.Stringp("actor", audit.UserID),
	)
	return mapOrganization(record), nil
}

func (s *service) Members(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) ([]Member, error) { //nolint:revive
	if _, err := s.repo.Get(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	profiles, err := s.repo.ListProfilesForOrg(ctx, id)
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(profiles))
	for _, profile := range profiles {
		members = append(members, Member{
			UserID:   profile.UserID,
			FullName: profile.FullName,
			Phone:    profile.Phone,
			JoinedAt: profile.CreatedAt,
		})
	}
	return members, nil
}

func (s *service) Stats(ctx context.Context, audit requesttrace.AuditInfo) (Stats, error) { //nolint:revive
	_, total, err := s.repo.List(ctx, false, 1, 0)
	if err != nil {
		return Stats{}, err
	}
	_, active, err := s.repo.List(ctx, true, 1, 0)
	if err != nil {
		return Stats{}, err
	}
	revenue, err := s.repo.PaidRevenue(ctx)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		TotalOrganizations:  total,
		ActiveOrganizations: active,
		PaidRevenue:         revenue,
	}, nil
}

type normalizedCreateInput struct {
	name string
	slug string
}

func validateCreateInput(input CreateInput) (normalizedCreateInput, error) {
	errs := FieldErrors{}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		errs.add("name", "name is required")
	}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		derived, err := persistence.SlugFromName(name)
		if err != nil {
			errs.add("slug", "slug is required when it cannot be derived from the name")
		} else {
			slug = derived
		}
	} else {
		normalized, err := persistence.NormalizeSlug(slug)
		if err != nil {
			errs.add("slug", err.Error())
		} else {
			slug = normalized
		}
	}

	if strings.TrimSpace(input.Plan) == "" {
		errs.add("plan", "plan is required")
	}

	if len(errs) > 0 {
		return normalizedCreateInput{}, &ValidationError{Fields: errs}
	}
	return normalizedCreateInput{name: name, slug: slug}, nil
}

func mapOrganization(record persistence.OrganizationRecord) Organization {
	return Organization{
		ID:                 record.ID,
		Slug:               record.Slug,
		Name:               record.Name,
		Description:        record.Description,
		SubscriptionPlan:   record.SubscriptionPlan,
		SubscriptionStatus: record.SubscriptionStatus,
		StartDate:          record.SubscriptionStartDate,
		EndDate:            record.SubscriptionEndDate,
		MaxUsers:           record.MaxUsers,
		MaxProducts:        record.MaxProducts,
		MaxRiders:          record.MaxRiders,
		IsActive:           record.IsActive,
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

func (f FieldErrors) add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = []string{message}
		return
	}
	f[field] = append(f[field], message)
}

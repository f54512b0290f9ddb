package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	domainrepo "github.com/bkpos-id/bkpos-saas/domains/plans/be/repo"
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
	ErrNotFound = errors.New("subscription plan not found")
	ErrConflict = errors.New("subscription plan conflict")
)

// Unlimited is the cap value meaning no limit.
const Unlimited = -1

// Plan is a subscription tier offered to organizations. Prices are monthly
// and yearly amounts in IDR.
type Plan struct {
	ID           uuid.UUID
	Name         string
	DisplayName  string
	PriceMonthly int64
	PriceYearly  int64
	MaxUsers     int
	MaxProducts  int
	MaxRiders    int
	Features     []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsFree reports whether the plan costs nothing per month.
func (p Plan) IsFree() bool { return p.PriceMonthly == 0 }

// CreateInput defines the payload to add a catalog entry.
type CreateInput struct {
	Name         string
	DisplayName  string
	PriceMonthly int64
	PriceYearly  int64
	MaxUsers     int
	MaxProducts  int
	MaxRiders    int
	Features     []string
}

// UpdateInput defines the mutable catalog fields.
type UpdateInput struct {
	DisplayName  *string
	PriceMonthly *int64
	PriceYearly  *int64
	MaxUsers     *int
	MaxProducts  *int
	MaxRiders    *int
	Features     []string
	IsActive     *bool
}

// Service exposes the plan catalog operations.
type Service interface {
	List(ctx context.Context, audit requesttrace.AuditInfo, includeInactive bool) ([]Plan, error)
	Get(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) (Plan, error)
	GetByName(ctx context.Context, audit requesttrace.AuditInfo, name string) (Plan, error)
	Create(ctx context.Context, audit requesttrace.AuditInfo, input CreateInput) (Plan, error)
	Update(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, input UpdateInput) (Plan, error)
}

type service struct {
	repo domainrepo.Repository
}

// New builds a plans Service backed by the provided repository.
func New(repo domainrepo.Repository) Service {
	if repo == nil {
		panic("plans repository is required")
	}
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, audit requesttrace.AuditInfo, includeInactive bool) ([]Plan, error) { //nolint:revive
	records, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}

	plans := make([]Plan, 0, len(records))
	for _, record := range records {
		plans = append(plans, mapPlan(record))
	}
	return plans, nil
}

func (s *service) Get(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) (Plan, error) { //nolint:revive
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Plan{}, ErrNotFound
		}
		return Plan{}, err
	}
	return mapPlan(record), nil
}

func (s *service) GetByName(ctx context.Context, audit requesttrace.AuditInfo, name string) (Plan, error) { //nolint:revive
	record, err := s.repo.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Plan{}, ErrNotFound
		}
		return Plan{}, err
	}
	return mapPlan(record), nil
}

func (s *service) Create(ctx context.Context, audit requesttrace.AuditInfo, input CreateInput) (Plan, error) { //nolint:revive
	normalized, validationErr := validateCreateInput(input)
	if validationErr != nil {
		return Plan{}, validationErr
	}

	if _, err := s.repo.GetByName(ctx, normalized.name); err == nil {
		return Plan{}, ErrConflict
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return Plan{}, err
	}

	record, err := s.repo.Create(ctx, persistence.PlanRecord{
		ID:           uuid.New(),
		Name:         normalized.name,
		DisplayName:  normalized.displayName,
		PriceMonthly: input.PriceMonthly,
		PriceYearly:  input.PriceYearly,
		MaxUsers:     input.MaxUsers,
		MaxProducts:  input.MaxProducts,
		MaxRiders:    input.MaxRiders,
		Features:     normalized.features,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			return Plan{}, ErrConflict
		}
		return Plan{}, err
	}
	return mapPlan(record), nil
}

func (s *service) Update(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, input UpdateInput) (Plan, error) { //nolint:revive
	if id == uuid.Nil {
		return Plan{}, ErrNotFound
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Plan{}, ErrNotFound
		}
		return Plan{}, err
	}

	if validationErr := applyUpdateInput(&current, input); validationErr != nil {
		return Plan{}, validationErr
	}

	record, err := s.repo.Update(ctx, current)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Plan{}, ErrNotFound
		}
		if errors.Is(err, persistence.ErrConflict) {
			return Plan{}, ErrConflict
		}
		return Plan{}, err
	}
	return mapPlan(record), nil
}

type normalizedCreateInput struct {
	name        string
	displayName string
	features    []string
}

func validateCreateInput(input CreateInput) (normalizedCreateInput, error) {
	errs := FieldErrors{}

	name, err := persistence.NormalizeSlug(input.Name)
	if err != nil {
		errs.add("name", err.Error())
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		errs.add("displayName", "displayName is required")
	}

	validatePrice(errs, "priceMonthly", input.PriceMonthly)
	validatePrice(errs, "priceYearly", input.PriceYearly)
	validateCap(errs, "maxUsers", input.MaxUsers)
	validateCap(errs, "maxProducts", input.MaxProducts)
	validateCap(errs, "maxRiders", input.MaxRiders)

	if len(errs) > 0 {
		return normalizedCreateInput{}, &ValidationError{Fields: errs}
	}

	features := input.Features
	if features == nil {
		features = []string{}
	}
	return normalizedCreateInput{name: name, displayName: displayName, features: features}, nil
}

func applyUpdateInput(current *persistence.PlanRecord, input UpdateInput) error {
	errs := FieldErrors{}

	if input.DisplayName != nil {
		trimmed := strings.TrimSpace(*input.DisplayName)
		if trimmed == "" {
			errs.add("displayName", "displayName is required")
		} else {
			current.DisplayName = trimmed
		}
	}
	if input.PriceMonthly != nil {
		validatePrice(errs, "priceMonthly", *input.PriceMonthly)
		current.PriceMonthly = *input.PriceMonthly
	}
	if input.PriceYearly != nil {
		validatePrice(errs, "priceYearly", *input.PriceYearly)
		current.PriceYearly = *input.PriceYearly
	}
	if input.MaxUsers != nil {
		validateCap(errs, "maxUsers", *input.MaxUsers)
		current.MaxUsers = *input.MaxUsers
	}
	if input.MaxProducts != nil {
		validateCap(errs, "maxProducts", *input.MaxProducts)
		current.MaxProducts = *input.MaxProducts
	}
	if input.MaxRiders != nil {
		validateCap(errs, "maxRiders", *input.MaxRiders)
		current.MaxRiders = *input.MaxRiders
	}
	if input.Features != nil {
		current.Features = input.Features
	}
	if input.IsActive != nil {
		current.IsActive = *input.IsActive
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validatePrice(errs FieldErrors, field string, value int64) {
	if value < 0 {
		errs.add(field, field+" must not be negative")
	}
}

func validateCap(errs FieldErrors, field string, value int) {
	if value < Unlimited {
		errs.add(field, field+" must be -1 (unlimited) or non-negative")
	}
}

func mapPlan(record persistence.PlanRecord) Plan {
	return Plan{
		ID:           record.ID,
		Name:         record.Name,
		DisplayName:  record.DisplayName,
		PriceMonthly: record.PriceMonthly,
		PriceYearly:  record.PriceYearly,
		MaxUsers:     record.MaxUsers,
		MaxProducts:  record.MaxProducts,
		MaxRiders:    record.MaxRiders,
		Features:     record.Features,
		IsActive:     record.IsActive,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

func (f FieldErrors) add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = []string{message}
		return
	}
	f[field] = append(f[field], message)
}

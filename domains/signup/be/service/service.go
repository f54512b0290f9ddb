package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainrepo "github.com/bkpos-id/bkpos-saas/domains/signup/be/repo"
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

// ProvisionIncompleteError means the auth identity exists but tenant
// provisioning did not commit. Retrying signup with the same account id
// completes provisioning without creating a second identity.
type ProvisionIncompleteError struct {
	AccountID string
	Cause     error
}

func (e *ProvisionIncompleteError) Error() string {
	return fmt.Sprintf("account %s created but provisioning incomplete: %v", e.AccountID, e.Cause)
}

func (e *ProvisionIncompleteError) Unwrap() error { return e.Cause }

// ErrAlreadySetUp is returned when the account behind a signup already has a
// profile. ErrEmailTaken lives in provisioning_deps.go next to the
// provisioner contract that raises it.
var ErrAlreadySetUp = errors.New("account already belongs to an organization")

const (
	minPasswordLength = 6
	subscriptionTerm  = 30 * 24 * time.Hour
	slugRetryLimit    = 3
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Input is the signup wizard payload.
type Input struct {
	OrganizationName     string
	BusinessType         string
	Email                string
	Password             string
	PasswordConfirmation string
	FullName             string
	Phone                string
	Plan                 string

	// AccountID retries provisioning for an identity orphaned by an earlier
	// failed attempt. When set, no new identity is created.
	AccountID string
}

// Result describes the provisioned tenant.
type Result struct {
	OrganizationID   uuid.UUID
	OrganizationSlug string
	AccountID        string
	PlanName         string
	Status           string
}

// Service runs the self-service signup flow.
type Service interface {
	Signup(ctx context.Context, audit requesttrace.AuditInfo, input Input) (Result, error)
}

type service struct {
	repo     domainrepo.Repository
	accounts AccountProvisioner
	logger   *zap.Logger
	now      func() time.Time
}

// New builds a signup Service.
func New(repo domainrepo.Repository, accounts AccountProvisioner, logger *zap.Logger) Service {
	if repo == nil {
		panic("signup repository is required")
	}
	if accounts == nil {
		panic("account provisioner is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &service{repo: repo, accounts: accounts, logger: logger, now: time.Now}
}

// Signup validates the wizard payload, creates the auth identity, and
// provisions the tenant in one transaction. A failure after identity creation
// surfaces as ProvisionIncompleteError so the client can retry without
// a duplicate account.
func (s *service) Signup(ctx context.Context, audit requesttrace.AuditInfo, input Input) (Result, error) { //nolint:revive
	if err := validateInput(input); err != nil {
		return Result{}, err
	}

	plan, err := s.repo.GetPlanByName(ctx, input.Plan)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Result{}, &ValidationError{Fields: FieldErrors{"plan": {"unknown subscription plan"}}}
		}
		return Result{}, err
	}

	slug, err := s.availableSlug(ctx, input.OrganizationName)
	if err != nil {
		return Result{}, err
	}

	accountID := input.AccountID
	if accountID == "" {
		accountID, err = s.accounts.CreateAccount(ctx, input.Email, input.Password, input.FullName)
		if err != nil {
			if errors.Is(err, ErrEmailTaken) {
				return Result{}, ErrEmailTaken
			}
			return Result{}, fmt.Errorf("create account: %w", err)
		}
	} else {
		// Retry path: the identity exists, it must not be provisioned yet.
		if _, err := s.repo.GetProfile(ctx, accountID); err == nil {
			return Result{}, ErrAlreadySetUp
		} else if !errors.Is(err, persistence.ErrNotFound) {
			return Result{}, err
		}
	}

	now := s.now().UTC()
	end := now.Add(subscriptionTerm)

	status := "active"
	paymentStatus := "pending"
	if plan.PriceMonthly == 0 {
		status = "trial"
		paymentStatus = "free"
	}

	provision := persistence.SignupProvision{
		Organization: persistence.OrganizationRecord{
			ID:                    uuid.New(),
			Slug:                  slug,
			Name:                  strings.TrimSpace(input.OrganizationName),
			SubscriptionPlan:      plan.Name,
			SubscriptionStatus:    status,
			SubscriptionStartDate: &now,
			SubscriptionEndDate:   &end,
			MaxUsers:              plan.MaxUsers,
			MaxProducts:           plan.MaxProducts,
			MaxRiders:             plan.MaxRiders,
			IsActive:              true,
			Branding:              mustJSON(BrandingPreset()),
			Terminology:           mustJSON(TerminologyPreset(input.BusinessType)),
			Features:              mustJSON(FeaturesPreset(plan.Name)),
			DashboardLayout:       mustJSON(map[string]any{}),
			ReportTemplates:       mustJSON(map[string]any{}),
		},
		History: persistence.SubscriptionHistoryRecord{
			ID:            uuid.New(),
			PlanName:      plan.Name,
			Amount:        plan.PriceMonthly,
			PaymentStatus: paymentStatus,
			StartDate:     now,
			EndDate:       end,
		},
		Profile: persistence.ProfileRecord{
			UserID:   accountID,
			FullName: strings.TrimSpace(input.FullName),
			Phone:    strings.TrimSpace(input.Phone),
		},
		Role: "admin",
	}
	if paymentStatus == "free" {
		provision.History.PaymentDate = &now
	}

	org, err := s.repo.ProvisionSignup(ctx, provision)
	if err != nil {
		s.logger.Error("signup provisioning failed after account creation",
			zap.String("account_id", accountID),
			zap.String("slug", slug),
			zap.Error(err),
		)
		return Result{}, &ProvisionIncompleteError{AccountID: accountID, Cause: err}
	}

	s.logger.Info("organization signed up",
		zap.String("organization_id", org.ID.String()),
		zap.String("slug", org.Slug),
		zap.String("plan", plan.Name),
		zap.String("business_type", input.BusinessType),
	)

	return Result{
		OrganizationID:   org.ID,
		OrganizationSlug: org.Slug,
		AccountID:        accountID,
		PlanName:         plan.Name,
		Status:           org.SubscriptionStatus,
	}, nil
}

// availableSlug derives a slug from the organization name and suffixes it
// when taken.
func (s *service) availableSlug(ctx context.Context, orgName string) (string, error) {
	base, err := persistence.SlugFromName(orgName)
	if err != nil {
		return "", &ValidationError{Fields: FieldErrors{"organizationName": {"cannot derive a slug from the organization name"}}}
	}

	candidate := base
	for attempt := 0; attempt < slugRetryLimit; attempt++ {
		_, err := s.repo.GetOrganizationBySlug(ctx, candidate)
		if errors.Is(err, persistence.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
	}
	return "", fmt.Errorf("no available slug for %q", orgName)
}

func validateInput(input Input) error {
	errs := FieldErrors{}

	if strings.TrimSpace(input.OrganizationName) == "" {
		errs.add("organizationName", "organization name is required")
	}
	if strings.TrimSpace(input.BusinessType) == "" {
		errs.add("businessType", "business type is required")
	} else if !IsKnownBusinessType(input.BusinessType) {
		errs.add("businessType", "unknown business type")
	}
	if strings.TrimSpace(input.FullName) == "" {
		errs.add("fullName", "full name is required")
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		errs.add("email", "email is required")
	} else if !emailPattern.MatchString(email) {
		errs.add("email", "email is not valid")
	}

	// Skip password checks on the retry path: the identity already exists.
	if input.AccountID == "" {
		if input.Password == "" {
			errs.add("password", "password is required")
		} else if len(input.Password) < minPasswordLength {
			errs.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		}
		if input.Password != input.PasswordConfirmation {
			errs.add("passwordConfirmation", "passwords do not match")
		}
	}

	if strings.TrimSpace(input.Plan) == "" {
		errs.add("plan", "plan is required")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (f FieldErrors) add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = []string{message}
		return
	}
	f[field] = append(f[field], message)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
	"github.com/bkpos-id/bkpos-saas/platform/go/requesttrace"
)

type mockRepo struct {
	getPlanFn    func(ctx context.Context, name string) (persistence.PlanRecord, error)
	getBySlugFn  func(ctx context.Context, slug string) (persistence.OrganizationRecord, error)
	provisionFn  func(ctx context.Context, p persistence.SignupProvision) (persistence.OrganizationRecord, error)
	getProfileFn func(ctx context.Context, userID string) (persistence.ProfileRecord, error)
}

func (m *mockRepo) GetPlanByName(ctx context.Context, name string) (persistence.PlanRecord, error) {
	return m.getPlanFn(ctx, name)
}

func (m *mockRepo) GetOrganizationBySlug(ctx context.Context, slug string) (persistence.OrganizationRecord, error) {
	return m.getBySlugFn(ctx, slug)
}

func (m *mockRepo) ProvisionSignup(ctx context.Context, p persistence.SignupProvision) (persistence.OrganizationRecord, error) {
	return m.provisionFn(ctx, p)
}

func (m *mockRepo) GetProfile(ctx context.Context, userID string) (persistence.ProfileRecord, error) {
	return m.getProfileFn(ctx, userID)
}

type mockAccounts struct {
	createFn func(ctx context.Context, email, password, fullName string) (string, error)
}

func (m *mockAccounts) CreateAccount(ctx context.Context, email, password, fullName string) (string, error) {
	return m.createFn(ctx, email, password, fullName)
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func validInput() Input {
	return Input{
		OrganizationName:     "Warung Pak Budi",
		BusinessType:         "restaurant",
		Email:                "budi@example.com",
		Password:             "rahasia1",
		PasswordConfirmation: "rahasia1",
		FullName:             "Budi Santoso",
		Phone:                "+62811111111",
		Plan:                 "free",
	}
}

func freePlan() persistence.PlanRecord {
	return persistence.PlanRecord{Name: "free", PriceMonthly: 0, MaxUsers: 5, MaxProducts: 50, MaxRiders: 3}
}

func slugAvailable(context.Context, string) (persistence.OrganizationRecord, error) {
	return persistence.OrganizationRecord{}, persistence.ErrNotFound
}

func newTestService(t *testing.T, repo *mockRepo, accounts *mockAccounts) *service {
	t.Helper()
	svc := New(repo, accounts, zaptest.NewLogger(t)).(*service)
	svc.now = fixedNow
	return svc
}

func TestSignupValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &mockRepo{}, &mockAccounts{})

	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{name: "missing-org-name", mutate: func(in *Input) { in.OrganizationName = "  " }, field: "organizationName"},
		{name: "missing-business-type", mutate: func(in *Input) { in.BusinessType = "" }, field: "businessType"},
		{name: "unknown-business-type", mutate: func(in *Input) { in.BusinessType = "fintech" }, field: "businessType"},
		{name: "missing-full-name", mutate: func(in *Input) { in.FullName = "" }, field: "fullName"},
		{name: "missing-email", mutate: func(in *Input) { in.Email = "" }, field: "email"},
		{name: "bad-email", mutate: func(in *Input) { in.Email = "not-an-email" }, field: "email"},
		{name: "short-password", mutate: func(in *Input) { in.Password = "abc"; in.PasswordConfirmation = "abc" }, field: "password"},
		{name: "mismatched-confirmation", mutate: func(in *Input) { in.PasswordConfirmation = "different1" }, field: "passwordConfirmation"},
		{name: "missing-plan", mutate: func(in *Input) { in.Plan = "" }, field: "plan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)

			_, err := svc.Signup(context.Background(), requesttrace.Anonymous("req-1"), input)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Contains(t, validationErr.Fields, tt.field)
		})
	}
}

func TestSignupFreePlanProvisionsTrialTenant(t *testing.T) {
	t.Parallel()

	var captured persistence.SignupProvision
	repo := &mockRepo{
		getPlanFn: func(_ context.Context, name string) (persistence.PlanRecord, error) {
			require.Equal(t, "free", name)
			return freePlan(), nil
		},
		getBySlugFn: slugAvailable,
		provisionFn: func(_ context.Context, p persistence.SignupProvision) (persistence.OrganizationRecord, error) {
			captured = p
			return p.Organization, nil
		},
	}
	accounts := &mockAccounts{
		createFn: func(_ context.Context, email, password, fullName string) (string, error) {
			require.Equal(t, "budi@example.com", email)
			require.Equal(t, "rahasia1", password)
			require.Equal(t, "Budi Santoso", fullName)
			return "acct-1", nil
		},
	}

	result, err := newTestService(t, repo, accounts).
		Signup(context.Background(), requesttrace.Anonymous("req-1"), validInput())
	require.NoError(t, err)
	require.Equal(t, "warung-pak-budi", result.OrganizationSlug)
	require.Equal(t, "acct-1", result.AccountID)
	require.Equal(t, "trial", result.Status)

	// Free plan: trial status, ledger row recorded as free and dated.
	require.Equal(t, "trial", captured.Organization.SubscriptionStatus)
	require.Equal(t, "free", captured.History.PaymentStatus)
	require.NotNil(t, captured.History.PaymentDate)
	require.EqualValues(t, 0, captured.History.Amount)
	require.Equal(t, fixedNow().Add(30*24*time.Hour), captured.History.EndDate)

	// Caps copied from the plan.
	require.Equal(t, 5, captured.Organization.MaxUsers)
	require.Equal(t, 50, captured.Organization.MaxProducts)
	require.Equal(t, 3, captured.Organization.MaxRiders)

	// Owner becomes admin.
	require.Equal(t, "admin", captured.Role)
	require.Equal(t, "acct-1", captured.Profile.UserID)

	// Restaurant terminology preset applies.
	var terminology map[string]string
	require.NoError(t, json.Unmarshal(captured.Organization.Terminology, &terminology))
	require.Equal(t, "Dapur", terminology["warehouse"])
	require.Equal(t, "Menu", terminology["product"])

	// Free plan features: base set only.
	var features map[string]bool
	require.NoError(t, json.Unmarshal(captured.Organization.Features, &features))
	require.True(t, features["pos"])
	require.False(t, features["gps_tracking"])
	require.False(t, features["production_tracking"])
}

func TestSignupProFeaturePreset(t *testing.T) {
	t.Parallel()

	features := FeaturesPreset("pro")
	require.True(t, features["production_tracking"])
	require.False(t, features["multi_currency"])
	require.True(t, features["advanced_reports"])
	require.True(t, features["barcode_scanner"])

	enterprise := FeaturesPreset("enterprise")
	for key, enabled := range enterprise {
		require.True(t, enabled, key)
	}
}

func TestSignupPaidPlanIsActivePending(t *testing.T) {
	t.Parallel()

	var captured persistence.SignupProvision
	repo := &mockRepo{
		getPlanFn: func(context.Context, string) (persistence.PlanRecord, error) {
			return persistence.PlanRecord{Name: "pro", PriceMonthly: 299000, MaxUsers: 100, MaxProducts: 1000, MaxRiders: 50}, nil
		},
		getBySlugFn: slugAvailable,
		provisionFn: func(_ context.Context, p persistence.SignupProvision) (persistence.OrganizationRecord, error) {
			captured = p
			return p.Organization, nil
		},
	}
	accounts := &mockAccounts{
		createFn: func(context.Context, string, string, string) (string, error) { return "acct-2", nil },
	}

	input := validInput()
	input.Plan = "pro"
	result, err := newTestService(t, repo, accounts).
		Signup(context.Background(), requesttrace.Anonymous("req-1"), input)
	require.NoError(t, err)
	require.Equal(t, "active", result.Status)
	require.Equal(t, "pending", captured.History.PaymentStatus)
	require.Nil(t, captured.History.PaymentDate)
	require.EqualValues(t, 299000, captured.History.Amount)
}

func TestSignupTakenSlugGetsSuffix(t *testing.T) {
	t.Parallel()

	lookups := 0
	repo := &mockRepo{
		getPlanFn: func(context.Context, string) (persistence.PlanRecord, error) { return freePlan(), nil },
		getBySlugFn: func(_ context.Context, slug string) (persistence.OrganizationRecord, error) {
			lookups++
			if slug == "warung-pak-budi" {
				return persistence.OrganizationRecord{Slug: slug}, nil
			}
			return persistence.OrganizationRecord{}, persistence.ErrNotFound
		},
		provisionFn: func(_ context.Context, p persistence.SignupProvision) (persistence.OrganizationRecord, error) {
			return p.Organization, nil
		},
	}
	accounts := &mockAccounts{
		createFn: func(context.Context, string, string, string) (string, error) { return "acct-3", nil },
	}

	result, err := newTestService(t, repo, accounts).
		Signup(context.Background(), requesttrace.Anonymous("req-1"), validInput())
	require.NoError(t, err)
	require.Equal(t, 2, lookups)
	require.NotEqual(t, "warung-pak-budi", result.OrganizationSlug)
	require.Contains(t, result.OrganizationSlug, "warung-pak-budi-")
}

func TestSignupEmailTaken(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		getPlanFn:   func(context.Context, string) (persistence.PlanRecord, error) { return freePlan(), nil },
		getBySlugFn: slugAvailable,
	}
	accounts := &mockAccounts{
		createFn: func(context.Context, string, string, string) (string, error) { return "", ErrEmailTaken },
	}

	_, err := newTestService(t, repo, accounts).
		Signup(context.Background(), requesttrace.Anonymous("req-1"), validInput())
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignupProvisioningFailureIsRetryable(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	repo := &mockRepo{
		getPlanFn:   func(context.Context, string) (persistence.PlanRecord, error) { return freePlan(), nil },
		getBySlugFn: slugAvailable,
		provisionFn: func(context.Context, persistence.SignupProvision) (persistence.OrganizationRecord, error) {
			return persistence.OrganizationRecord{}, boom
		},
	}
	created := 0
	accounts := &mockAccounts{
		createFn: func(context.Context, string, string, string) (string, error) {
			created++
			return "acct-orphan", nil
		},
	}
	svc := newTestService(t, repo, accounts)

	_, err := svc.Signup(context.Background(), requesttrace.Anonymous("req-1"), validInput())
	var incomplete *ProvisionIncompleteError
	require.ErrorAs(t, err, &incomplete)
	require.Equal(t, "acct-orphan", incomplete.AccountID)
	require.ErrorIs(t, err, boom)

	// Retry with the orphaned account id completes without a second identity.
	repo.provisionFn = func(_ context.Context, p persistence.SignupProvision) (persistence.OrganizationRecord, error) {
		require.Equal(t, "acct-orphan", p.Profile.UserID)
		return p.Organization, nil
	}
	repo.getProfileFn = func(context.Context, string) (persistence.ProfileRecord, error) {
		return persistence.ProfileRecord{}, persistence.ErrNotFound
	}

	retry := validInput()
	retry.AccountID = "acct-orphan"
	retry.Password = ""
	retry.PasswordConfirmation = ""

	result, err := svc.Signup(context.Background(), requesttrace.Anonymous("req-2"), retry)
	require.NoError(t, err)
	require.Equal(t, "acct-orphan", result.AccountID)
	require.Equal(t, 1, created, "no second identity on retry")
}

func TestSignupRetryAlreadyProvisioned(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		getPlanFn:   func(context.Context, string) (persistence.PlanRecord, error) { return freePlan(), nil },
		getBySlugFn: slugAvailable,
		getProfileFn: func(context.Context, string) (persistence.ProfileRecord, error) {
			return persistence.ProfileRecord{UserID: "acct-1"}, nil
		},
	}
	svc := newTestService(t, repo, &mockAccounts{})

	retry := validInput()
	retry.AccountID = "acct-1"
	_, err := svc.Signup(context.Background(), requesttrace.Anonymous("req-1"), retry)
	require.ErrorIs(t, err, ErrAlreadySetUp)
}

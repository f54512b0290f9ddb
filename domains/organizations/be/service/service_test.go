package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
	"github.com/bkpos-id/bkpos-saas/platform/go/requesttrace"
)

type mockRepo struct {
	listFn         func(ctx context.Context, onlyActive bool, limit, offset int) ([]persistence.OrganizationRecord, int, error)
	getFn          func(ctx context.Context, id uuid.UUID) (persistence.OrganizationRecord, error)
	getBySlugFn    func(ctx context.Context, slug string) (persistence.OrganizationRecord, error)
	createFn       func(ctx context.Context, org persistence.OrganizationRecord, hist persistence.SubscriptionHistoryRecord) (persistence.OrganizationRecord, error)
	updateInfoFn   func(ctx context.Context, id uuid.UUID, name string, description *string) (persistence.OrganizationRecord, error)
	setActiveFn    func(ctx context.Context, id uuid.UUID, active bool) (persistence.OrganizationRecord, error)
	getPlanFn      func(ctx context.Context, name string) (persistence.PlanRecord, error)
	listProfilesFn func(ctx context.Context, orgID uuid.UUID) ([]persistence.ProfileRecord, error)
	paidRevenueFn  func(ctx context.Context) (int64, error)
}

func (m *mockRepo) List(ctx context.Context, onlyActive bool, limit, offset int) ([]persistence.OrganizationRecord, int, error) {
	return m.listFn(ctx, onlyActive, limit, offset)
}

func (m *mockRepo) Get(ctx context.Context, id uuid.UUID) (persistence.OrganizationRecord, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) GetBySlug(ctx context.Context, slug string) (persistence.OrganizationRecord, error) {
	return m.getBySlugFn(ctx, slug)
}

func (m *mockRepo) CreateWithHistory(ctx context.Context, org persistence.OrganizationRecord, hist persistence.SubscriptionHistoryRecord) (persistence.OrganizationRecord, error) {
	return m.createFn(ctx, org, hist)
}

func (m *mockRepo) UpdateInfo(ctx context.Context, id uuid.UUID, name string, description *string) (persistence.OrganizationRecord, error) {
	return m.updateInfoFn(ctx, id, name, description)
}

func (m *mockRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) (persistence.OrganizationRecord, error) {
	return m.setActiveFn(ctx, id, active)
}

func (m *mockRepo) GetPlanByName(ctx context.Context, name string) (persistence.PlanRecord, error) {
	return m.getPlanFn(ctx, name)
}

func (m *mockRepo) ListProfilesForOrg(ctx context.Context, orgID uuid.UUID) ([]persistence.ProfileRecord, error) {
	return m.listProfilesFn(ctx, orgID)
}

func (m *mockRepo) PaidRevenue(ctx context.Context) (int64, error) {
	return m.paidRevenueFn(ctx)
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, repo *mockRepo) *service {
	t.Helper()
	svc := New(repo, zaptest.NewLogger(t)).(*service)
	svc.now = fixedNow
	return svc
}

func TestCreateFreePlanStartsTrial(t *testing.T) {
	t.Parallel()

	var capturedOrg persistence.OrganizationRecord
	var capturedHist persistence.SubscriptionHistoryRecord
	repo := &mockRepo{
		getPlanFn: func(_ context.Context, name string) (persistence.PlanRecord, error) {
			require.Equal(t, "free", name)
			return persistence.PlanRecord{Name: "free", PriceMonthly: 0, MaxUsers: 5, MaxProducts: 50, MaxRiders: 3}, nil
		},
		getBySlugFn: func(context.Context, string) (persistence.OrganizationRecord, error) {
			return persistence.OrganizationRecord{}, persistence.ErrNotFound
		},
		createFn: func(_ context.Context, org persistence.OrganizationRecord, hist persistence.SubscriptionHistoryRecord) (persistence.OrganizationRecord, error) {
			capturedOrg = org
			capturedHist = hist
			return org, nil
		},
	}

	org, err := newTestService(t, repo).Create(context.Background(), requesttrace.Anonymous("req-1"), CreateInput{
		Name: "Toko Berkah",
		Plan: "free",
	})
	require.NoError(t, err)
	require.Equal(t, "toko-berkah", org.Slug, "slug derived from name")
	require.Equal(t, "trial", org.SubscriptionStatus)

	require.Equal(t, "free", capturedHist.PaymentStatus)
	require.NotNil(t, capturedHist.PaymentDate)
	require.Equal(t, fixedNow().Add(30*24*time.Hour), capturedHist.EndDate)
	require.Equal(t, 5, capturedOrg.MaxUsers)
	require.True(t, capturedOrg.IsActive)

	var features map[string]bool
	require.NoError(t, json.Unmarshal(capturedOrg.Features, &features))
	require.True(t, features["pos"])
	require.False(t, features["gps_tracking"])
}

func TestCreatePaidPlanIsActive(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		getPlanFn: func(context.Context, string) (persistence.PlanRecord, error) {
			return persistence.PlanRecord{Name: "basic", PriceMonthly: 99000, MaxUsers: 25, MaxProducts: 200, MaxRiders: 10}, nil
		},
		getBySlugFn: func(context.Context, string) (persistence.OrganizationRecord, error) {
			return persistence.OrganizationRecord{}, persistence.ErrNotFound
		},
		createFn: func(_ context.Context, org persistence.OrganizationRecord, hist persistence.SubscriptionHistoryRecord) (persistence.OrganizationRecord, error) {
			require.Equal(t, "pending", hist.PaymentStatus)
			require.Nil(t, hist.PaymentDate)
			require.EqualValues(t, 99000, hist.Amount)
			return org, nil
		},
	}

	org, err := newTestService(t, repo).Create(context.Background(), requesttrace.Anonymous("req-1"), CreateInput{
		Name: "Distributor Jaya",
		Slug: "distributor-jaya",
		Plan: "basic",
	})
	require.NoError(t, err)
	require.Equal(t, "active", org.SubscriptionStatus)
}

func TestCreateSlugConflict(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		getPlanFn: func(context.Context, string) (persistence.PlanRecord, error) {
			return persistence.PlanRecord{Name: "free"}, nil
		},
		getBySlugFn: func(_ context.Context, slug string) (persistence.OrganizationRecord, error) {
			return persistence.OrganizationRecord{Slug: slug}, nil
		},
	}

	_, err := newTestService(t, repo).Create(context.Background(), requesttrace.Anonymous("req-1"), CreateInput{
		Name: "Toko Berkah",
		Slug: "toko-berkah",
		Plan: "free",
	})
	require.ErrorIs(t, err, ErrConflictSlug)
}

func TestCreateSlugConflictOnInsertRace(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		getPlanFn: func(context.Context, string) (persistence.PlanRecord, error) {
			return persistence.PlanRecord{Name: "free"}, nil
		},
		getBySlugFn: func(context.Context, string) (persistence.OrganizationRecord, error) {
			return persistence.OrganizationRecord{}, persistence.ErrNotFound
		},
		createFn: func(context.Context, persistence.OrganizationRecord, persistence.SubscriptionHistoryRecord) (persistence.OrganizationRecord, error) {
			return persistence.OrganizationRecord{}, persistence.ErrConflict
		},
	}

	_, err := newTestService(t, repo).Create(context.Background(), requesttrace.Anonymous("req-1"), CreateInput{
		Name: "Toko Berkah",
		Slug: "toko-berkah",
		Plan: "free",
	})
	require.ErrorIs(t, err, ErrConflictSlug)
}

func TestCreateUnknownPlan(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		getPlanFn: func(context.Context, string) (persistence.PlanRecord, error) {
			return persistence.PlanRecord{}, persistence.ErrNotFound
		},
	}

	_, err := newTestService(t, repo).Create(context.Background(), requesttrace.Anonymous("req-1"), CreateInput{
		Name: "Toko Berkah",
		Plan: "platinum",
	})
	require.ErrorIs(t, err, ErrPlanUnknown)
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	_, err := newTestService(t, &mockRepo{}).Create(context.Background(), requesttrace.Anonymous("req-1"), CreateInput{
		Slug: "UPPER CASE",
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "name")
	require.Contains(t, validationErr.Fields, "slug")
	require.Contains(t, validationErr.Fields, "plan")
}

func TestListClampsPageSize(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		listFn: func(_ context.Context, onlyActive bool, limit, offset int) ([]persistence.OrganizationRecord, int, error) {
			require.True(t, onlyActive)
			require.Equal(t, maxPageSize, limit)
			require.Equal(t, 0, offset)
			return nil, 0, nil
		},
	}

	_, _, err := newTestService(t, repo).List(context.Background(), requesttrace.Anonymous("req-1"), ListParams{
		OnlyActive: true,
		Limit:      10000,
		Offset:     -5,
	})
	require.NoError(t, err)
}

func TestSetActiveDeactivates(t *testing.T) {
	t.Parallel()

	orgID := uuid.New()
	repo := &mockRepo{
		setActiveFn: func(_ context.Context, id uuid.UUID, active bool) (persistence.OrganizationRecord, error) {
			require.Equal(t, orgID, id)
			require.False(t, active)
			return persistence.OrganizationRecord{ID: id, IsActive: active}, nil
		},
	}

	org, err := newTestService(t, repo).SetActive(context.Background(), requesttrace.Anonymous("req-1"), orgID, false)
	require.NoError(t, err)
	require.False(t, org.IsActive)
}

func TestStats(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		listFn: func(_ context.Context, onlyActive bool, _, _ int) ([]persistence.OrganizationRecord, int, error) {
			if onlyActive {
				return nil, 38, nil
			}
			return nil, 42, nil
		},
		paidRevenueFn: func(context.Context) (int64, error) {
			return 12_500_000, nil
		},
	}

	stats, err := newTestService(t, repo).Stats(context.Background(), requesttrace.Anonymous("req-1"))
	require.NoError(t, err)
	require.Equal(t, 42, stats.TotalOrganizations)
	require.Equal(t, 38, stats.ActiveOrganizations)
	require.EqualValues(t, 12_500_000, stats.PaidRevenue)
}

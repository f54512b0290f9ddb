package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bkpos-id/bkpos-saas/domains/plans/be/service"
	"github.com/bkpos-id/bkpos-saas/platform/go/requesttrace"
)

type mockService struct {
	listFn   func(ctx context.Context, includeInactive bool) ([]service.Plan, error)
	getFn    func(ctx context.Context, id uuid.UUID) (service.Plan, error)
	createFn func(ctx context.Context, input service.CreateInput) (service.Plan, error)
	updateFn func(ctx context.Context, id uuid.UUID, input service.UpdateInput) (service.Plan, error)
}

func (m *mockService) List(ctx context.Context, _ requesttrace.AuditInfo, includeInactive bool) ([]service.Plan, error) {
	return m.listFn(ctx, includeInactive)
}

func (m *mockService) Get(ctx context.Context, _ requesttrace.AuditInfo, id uuid.UUID) (service.Plan, error) {
	return m.getFn(ctx, id)
}

func (m *mockService) GetByName(ctx context.Context, _ requesttrace.AuditInfo, name string) (service.Plan, error) {
	panic("not expected")
}

func (m *mockService) Create(ctx context.Context, _ requesttrace.AuditInfo, input service.CreateInput) (service.Plan, error) {
	return m.createFn(ctx, input)
}

func (m *mockService) Update(ctx context.Context, _ requesttrace.AuditInfo, id uuid.UUID, input service.UpdateInput) (service.Plan, error) {
	return m.updateFn(ctx, id, input)
}

var _ service.Service = (*mockService)(nil)

func testPlan() service.Plan {
	return service.Plan{
		ID:           uuid.New(),
		Name:         "pro",
		DisplayName:  "Pro",
		PriceMonthly: 299000,
		PriceYearly:  2990000,
		MaxUsers:     100,
		MaxProducts:  1000,
		MaxRiders:    50,
		Features:     []string{"advanced_reports"},
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func TestListPlans(t *testing.T) {
	t.Parallel()

	var gotIncludeInactive bool
	svc := &mockService{
		listFn: func(ctx context.Context, includeInactive bool) ([]service.Plan, error) {
			gotIncludeInactive = includeInactive
			return []service.Plan{testPlan()}, nil
		},
	}
	h := New(svc, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/?include_inactive=true", nil)
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, gotIncludeInactive)

	var body planListResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	require.Equal(t, "pro", body.Items[0].Name)
	require.Equal(t, int64(299000), body.Items[0].PriceMonthly)
}

func TestGetPlanNotFound(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		getFn: func(ctx context.Context, id uuid.UUID) (service.Plan, error) {
			return service.Plan{}, service.ErrNotFound
		},
	}
	h := New(svc, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, "application/problem+json", resp.Header().Get("Content-Type"))
}

func TestGetPlanRejectsMalformedID(t *testing.T) {
	t.Parallel()

	h := New(&mockService{}, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/not-a-uuid", nil)
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreatePlan(t *testing.T) {
	t.Parallel()

	created := testPlan()
	svc := &mockService{
		createFn: func(ctx context.Context, input service.CreateInput) (service.Plan, error) {
			require.Equal(t, "pro", input.Name)
			require.Equal(t, int64(299000), input.PriceMonthly)
			return created, nil
		},
	}
	h := New(svc, zaptest.NewLogger(t))

	payload := `{"name":"pro","display_name":"Pro","price_monthly":299000,"price_yearly":2990000,"max_users":100,"max_products":1000,"max_riders":50}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	resp := httptest.NewRecorder()
	h.AdminRoutes().ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, "/api/v1/admin/plans/"+created.ID.String(), resp.Header().Get("Location"))
}

func TestCreatePlanValidationErrors(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		createFn: func(ctx context.Context, input service.CreateInput) (service.Plan, error) {
			return service.Plan{}, &service.ValidationError{Fields: service.FieldErrors{
				"price_monthly": {"must not be negative"},
			}}
		},
	}
	h := New(svc, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"pro","price_monthly":-1}`))
	resp := httptest.NewRecorder()
	h.AdminRoutes().ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)

	var body struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Contains(t, body.Errors, "price_monthly")
}

func TestUpdatePlanConflictAndPartialBody(t *testing.T) {
	t.Parallel()

	var gotInput service.UpdateInput
	svc := &mockService{
		updateFn: func(ctx context.Context, id uuid.UUID, input service.UpdateInput) (service.Plan, error) {
			gotInput = input
			return testPlan(), nil
		},
	}
	h := New(svc, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPatch, "/"+uuid.NewString(), strings.NewReader(`{"price_monthly":349000}`))
	resp := httptest.NewRecorder()
	h.AdminRoutes().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, gotInput.PriceMonthly)
	require.Equal(t, int64(349000), *gotInput.PriceMonthly)
	require.Nil(t, gotInput.DisplayName)
	require.Nil(t, gotInput.IsActive)
}

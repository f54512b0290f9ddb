package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bkpos-id/bkpos-saas/domains/plans/be/service"
	platformlogging "github.com/bkpos-id/bkpos-saas/platform/go/logging"
	"github.com/bkpos-id/bkpos-saas/platform/go/problem"
	"github.com/bkpos-id/bkpos-saas/platform/go/requesttrace"
)

// Handler exposes the plan catalog over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("plans service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes returns the catalog routes. Reads are available to any signed-in
// caller; writes are mounted behind the super-admin guard by the app.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{planID}", h.get)
	return r
}

// AdminRoutes returns the catalog management routes.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Patch("/{planID}", h.update)
	return r
}

type planResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	DisplayName  string    `json:"display_name"`
	PriceMonthly int64     `json:"price_monthly"`
	PriceYearly  int64     `json:"price_yearly"`
	MaxUsers     int       `json:"max_users"`
	MaxProducts  int       `json:"max_products"`
	MaxRiders    int       `json:"max_riders"`
	Features     []string  `json:"features"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type planListResponse struct {
	Items []planResponse `json:"items"`
}

type createPlanRequest struct {
	Name         string   `json:"name"`
	DisplayName  string   `json:"display_name"`
	PriceMonthly int64    `json:"price_monthly"`
	PriceYearly  int64    `json:"price_yearly"`
	MaxUsers     int      `json:"max_users"`
	MaxProducts  int      `json:"max_products"`
	MaxRiders    int      `json:"max_riders"`
	Features     []string `json:"features"`
}

type updatePlanRequest struct {
	DisplayName  *string  `json:"display_name"`
	PriceMonthly *int64   `json:"price_monthly"`
	PriceYearly  *int64   `json:"price_yearly"`
	MaxUsers     *int     `json:"max_users"`
	MaxProducts  *int     `json:"max_products"`
	MaxRiders    *int     `json:"max_riders"`
	Features     []string `json:"features"`
	IsActive     *bool    `json:"is_active"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	plans, err := h.svc.List(r.Context(), audit, includeInactive)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]planResponse, 0, len(plans))
	for _, plan := range plans {
		items = append(items, toAPIPlan(plan))
	}
	writeJSON(w, http.StatusOK, planListResponse{Items: items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "planID"))
	if err != nil {
		problem.Write(w, problem.New(problem.TypeValidation, "Invalid plan id", http.StatusBadRequest))
		return
	}

	plan, err := h.svc.Get(r.Context(), audit, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIPlan(plan))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	var body createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New(problem.TypeValidation, "Invalid request body", http.StatusBadRequest))
		return
	}

	plan, err := h.svc.Create(r.Context(), audit, service.CreateInput{
		Name:         body.Name,
		DisplayName:  body.DisplayName,
		PriceMonthly: body.PriceMonthly,
		PriceYearly:  body.PriceYearly,
		MaxUsers:     body.MaxUsers,
		MaxProducts:  body.MaxProducts,
		MaxRiders:    body.MaxRiders,
		Features:     body.Features,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/admin/plans/"+plan.ID.String())
	writeJSON(w, http.StatusCreated, toAPIPlan(plan))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "planID"))
	if err != nil {
		problem.Write(w, problem.New(problem.TypeValidation, "Invalid plan id", http.StatusBadRequest))
		return
	}

	var body updatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New(problem.TypeValidation, "Invalid request body", http.StatusBadRequest))
		return
	}

	plan, err := h.svc.Update(r.Context(), audit, id, service.UpdateInput{
		DisplayName:  body.DisplayName,
		PriceMonthly: body.PriceMonthly,
		PriceYearly:  body.PriceYearly,
		MaxUsers:     body.MaxUsers,
		MaxProducts:  body.MaxProducts,
		MaxRiders:    body.MaxRiders,
		Features:     body.Features,
		IsActive:     body.IsActive,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIPlan(plan))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		problem.Write(w, problem.
			New(problem.TypeValidation, "Validation failed", http.StatusBadRequest).
			WithErrors(validationErr.Fields))
	case errors.Is(err, service.ErrNotFound):
		problem.Write(w, problem.New(problem.TypeNotFound, "Plan not found", http.StatusNotFound))
	case errors.Is(err, service.ErrConflict):
		problem.Write(w, problem.New(problem.TypeConflict, "Plan already exists", http.StatusConflict))
	default:
		platformlogging.FromRequest(r, h.logger).Error("plans handler failure", zap.Error(err))
		problem.Write(w, problem.New(problem.TypeInternal, "Internal server error", http.StatusInternalServerError))
	}
}

func toAPIPlan(plan service.Plan) planResponse {
	return planResponse{
		ID:           plan.ID,
		Name:         plan.Name,
		DisplayName:  plan.DisplayName,
		PriceMonthly: plan.PriceMonthly,
		PriceYearly:  plan.PriceYearly,
		MaxUsers:     plan.MaxUsers,
		MaxProducts:  plan.MaxProducts,
		MaxRiders:    plan.MaxRiders,
		Features:     plan.Features,
		IsActive:     plan.IsActive,
		CreatedAt:    plan.CreatedAt,
		UpdatedAt:    plan.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bkpos-id/bkpos-saas/domains/organizations/be/service"
	platformlogging "github.com/bkpos-id/bkpos-saas/platform/go/logging"
	"github.com/bkpos-id/bkpos-saas/platform/go/problem"
	"github.com/bkpos-id/bkpos-saas/platform/go/requesttrace"
)

// Handler exposes tenant administration over HTTP. Every route here is
// mounted behind the super-admin guard.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("organizations service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes returns the tenant administration routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{orgID}", h.get)
	r.Patch("/{orgID}", h.update)
	r.Post("/{orgID}/deactivate", h.deactivate)
	r.Post("/{orgID}/activate", h.activate)
	r.Get("/{orgID}/members", h.members)
	return r
}

// StatsRoutes returns the platform overview route.
func (h *Handler) StatsRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.stats)
	return r
}

type organizationResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Slug               string     `json:"slug"`
	Name               string     `json:"name"`
	Description        *string    `json:"description,omitempty"`
	SubscriptionPlan   string     `json:"subscription_plan"`
	SubscriptionStatus string     `json:"subscription_status"`
	StartDate          *time.Time `json:"subscription_start_date,omitempty"`
	EndDate            *time.Time `json:"subscription_end_date,omitempty"`
	MaxUsers           int        `json:"max_users"`
	MaxProducts        int        `json:"max_products"`
	MaxRiders          int        `json:"max_riders"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type organizationListResponse struct {
	Items []organizationResponse `json:"items"`
	Total int                    `json:"total"`
}

type memberResponse struct {
	UserID   string    `json:"user_id"`
	FullName string    `json:"full_name"`
	Phone    string    `json:"phone,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

type statsResponse struct {
	TotalOrganizations  int   `json:"total_organizations"`
	ActiveOrganizations int   `json:"active_organizations"`
	PaidRevenue         int64 `json:"paid_revenue"`
}

type createOrganizationRequest struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
	Plan        string  `json:"plan"`
}

type updateOrganizationRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	params := service.ListParams{
		OnlyActive: r.URL.Query().Get("only_active") == "true",
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		params.Limit, _ = strconv.Atoi(raw)
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		params.Offset, _ = strconv.Atoi(raw)
	}

	orgs, total, err := h.svc.List(r.Context(), audit, params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]organizationResponse, 0, len(orgs))
	for _, org := range orgs {
		items = append(items, toAPIOrganization(org))
	}
	writeJSON(w, http.StatusOK, organizationListResponse{Items: items, Total: total})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}

	org, err := h.svc.Get(r.Context(), audit, orgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIOrganization(org))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	var body createOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New(problem.TypeValidation, "Invalid request body", http.StatusBadRequest))
		return
	}

	org, err := h.svc.Create(r.Context(), audit, service.CreateInput{
		Name:        body.Name,
		Slug:        body.Slug,
		Description: body.Description,
		Plan:        body.Plan,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/admin/organizations/"+org.ID.String())
	writeJSON(w, http.StatusCreated, toAPIOrganization(org))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}

	var body updateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New(problem.TypeValidation, "Invalid request body", http.StatusBadRequest))
		return
	}

	org, err := h.svc.Update(r.Context(), audit, orgID, service.UpdateInput{
		Name:        body.Name,
		Description: body.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIOrganization(org))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}

	org, err := h.svc.SetActive(r.Context(), audit, orgID, active)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIOrganization(org))
}

func (h *Handler) members(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}

	members, err := h.svc.Members(r.Context(), audit, orgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]memberResponse, 0, len(members))
	for _, member := range members {
		items = append(items, memberResponse(member))
	}
	writeJSON(w, http.StatusOK, map[string][]memberResponse{"items": items})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	stats, err := h.svc.Stats(r.Context(), audit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse(stats))
}

func (h *Handler) orgID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		problem.Write(w, problem.New(problem.TypeValidation, "Invalid organization id", http.StatusBadRequest))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		problem.Write(w, problem.
			New(problem.TypeValidation, "Validation failed", http.StatusBadRequest).
			WithErrors(validationErr.Fields))
	case errors.Is(err, service.ErrNotFound):
		problem.Write(w, problem.New(problem.TypeNotFound, "Organization not found", http.StatusNotFound))
	case errors.Is(err, service.ErrConflictSlug):
		problem.Write(w, problem.New(problem.TypeConflict, "Slug already in use", http.StatusConflict))
	case errors.Is(err, service.ErrPlanUnknown):
		problem.Write(w, problem.
			New(problem.TypeValidation, "Validation failed", http.StatusBadRequest).
			WithErrors(map[string][]string{"plan": {"unknown subscription plan"}}))
	default:
		platformlogging.FromRequest(r, h.logger).Error("organizations handler failure", zap.Error(err))
		problem.Write(w, problem.New(problem.TypeInternal, "Internal server error", http.StatusInternalServerError))
	}
}

func toAPIOrganization(org service.Organization) organizationResponse {
	return organizationResponse{
		ID:                 org.ID,
		Slug:               org.Slug,
		Name:               org.Name,
		Description:        org.Description,
		SubscriptionPlan:   org.SubscriptionPlan,
		SubscriptionStatus: org.SubscriptionStatus,
		StartDate:          org.StartDate,
		EndDate:            org.EndDate,
		MaxUsers:           org.MaxUsers,
		MaxProducts:        org.MaxProducts,
		MaxRiders:          org.MaxRiders,
		IsActive:           org.IsActive,
		CreatedAt:          org.CreatedAt,
		UpdatedAt:          org.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

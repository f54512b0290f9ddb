package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bkpos-id/bkpos-saas/domains/subscriptions/be/service"
	platformlogging "github.com/bkpos-id/bkpos-saas/platform/go/logging"
	"github.com/bkpos-id/bkpos-saas/platform/go/problem"
	"github.com/bkpos-id/bkpos-saas/platform/go/requesttrace"
)

// Handler exposes subscription state and plan changes over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("subscriptions service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes returns the self-view route: the caller's own subscription.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.myStatus)
	return r
}

// AdminRoutes returns the super-admin subscription management routes, mounted
// under /admin/organizations/{orgID}/subscription.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.statusForOrg)
	r.Get("/history", h.historyForOrg)
	r.Get("/usage", h.usageForOrg)
	r.Post("/plan", h.changePlan)
	return r
}

// PaymentRoutes returns payment confirmation, mounted under
// /admin/subscription-history.
func (h *Handler) PaymentRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{entryID}/confirm", h.confirmPayment)
	return r
}

type statusResponse struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	PlanName       string    `json:"plan_name"`
	PaymentStatus  string    `json:"payment_status,omitempty"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	DaysRemaining  int       `json:"days_remaining"`
	IsExpired      bool      `json:"is_expired"`
	IsExpiringSoon bool      `json:"is_expiring_soon"`
}

type historyEntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	PlanName      string     `json:"plan_name"`
	Amount        int64      `json:"amount"`
	PaymentStatus string     `json:"payment_status"`
	PaymentDate   *time.Time `json:"payment_date,omitempty"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	CreatedAt     time.Time  `json:"created_at"`
}

type usageResponse struct {
	Users         int     `json:"users"`
	MaxUsers      int     `json:"max_users"`
	UsersRatio    float64 `json:"users_ratio"`
	Products      int     `json:"products"`
	MaxProducts   int     `json:"max_products"`
	ProductsRatio float64 `json:"products_ratio"`
	Riders        int     `json:"riders"`
	MaxRiders     int     `json:"max_riders"`
	RidersRatio   float64 `json:"riders_ratio"`
}

type changePlanRequest struct {
	Plan string `json:"plan"`
}

func (h *Handler) myStatus(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	status, err := h.svc.MyStatus(r.Context(), audit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIStatus(status))
}

func (h *Handler) statusForOrg(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}

	status, err := h.svc.StatusForOrg(r.Context(), audit, orgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIStatus(status))
}

func (h *Handler) historyForOrg(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}

	entries, err := h.svc.HistoryForOrg(r.Context(), audit, orgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]historyEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toAPIHistoryEntry(entry))
	}
	writeJSON(w, http.StatusOK, map[string][]historyEntryResponse{"items": items})
}

func (h *Handler) usageForOrg(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}

	usage, err := h.svc.UsageForOrg(r.Context(), audit, orgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usageResponse(usage))
}

func (h *Handler) changePlan(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}

	var body changePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Plan == "" {
		problem.Write(w, problem.
			New(problem.TypeValidation, "Validation failed", http.StatusBadRequest).
			WithErrors(map[string][]string{"plan": {"plan is required"}}))
		return
	}

	status, err := h.svc.ChangePlan(r.Context(), audit, orgID, body.Plan)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIStatus(status))
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		problem.Write(w, problem.New(problem.TypeValidation, "Invalid history entry id", http.StatusBadRequest))
		return
	}

	entry, err := h.svc.ConfirmPayment(r.Context(), audit, entryID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIHistoryEntry(entry))
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
	switch {
	case errors.Is(err, service.ErrOrgNotFound):
		problem.Write(w, problem.New(problem.TypeNotFound, "Organization not found", http.StatusNotFound))
	case errors.Is(err, service.ErrHistoryNotFound):
		problem.Write(w, problem.New(problem.TypeNotFound, "History entry not found", http.StatusNotFound))
	case errors.Is(err, service.ErrNoOrganization):
		problem.Write(w, problem.
			New(problem.TypeNotFound, "No organization", http.StatusNotFound).
			WithDetail("the signed-in user does not belong to an organization"))
	case errors.Is(err, service.ErrPlanUnknown):
		problem.Write(w, problem.
			New(problem.TypeValidation, "Validation failed", http.StatusBadRequest).
			WithErrors(map[string][]string{"plan": {"unknown subscription plan"}}))
	default:
		platformlogging.FromRequest(r, h.logger).Error("subscriptions handler failure", zap.Error(err))
		problem.Write(w, problem.New(problem.TypeInternal, "Internal server error", http.StatusInternalServerError))
	}
}

func toAPIStatus(status service.Status) statusResponse {
	return statusResponse{
		OrganizationID: status.OrganizationID,
		PlanName:       status.PlanName,
		PaymentStatus:  status.PaymentStatus,
		StartDate:      status.StartDate,
		EndDate:        status.EndDate,
		DaysRemaining:  status.DaysRemaining,
		IsExpired:      status.IsExpired,
		IsExpiringSoon: status.IsExpiringSoon,
	}
}

func toAPIHistoryEntry(entry service.HistoryEntry) historyEntryResponse {
	return historyEntryResponse{
		ID:            entry.ID,
		PlanName:      entry.PlanName,
		Amount:        entry.Amount,
		PaymentStatus: entry.PaymentStatus,
		PaymentDate:   entry.PaymentDate,
		StartDate:     entry.StartDate,
		EndDate:       entry.EndDate,
		CreatedAt:     entry.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

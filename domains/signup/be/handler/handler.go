package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bkpos-id/bkpos-saas/domains/signup/be/service"
	platformlogging "github.com/bkpos-id/bkpos-saas/platform/go/logging"
	"github.com/bkpos-id/bkpos-saas/platform/go/problem"
	"github.com/bkpos-id/bkpos-saas/platform/go/requesttrace"
)

// Handler exposes the public signup wizard endpoint.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("signup service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes returns the public signup routes. No auth: this is the front door.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.signup)
	r.Get("/business-types", h.businessTypes)
	return r
}

type signupRequest struct {
	OrganizationName     string `json:"organization_name"`
	BusinessType         string `json:"business_type"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	FullName             string `json:"full_name"`
	Phone                string `json:"phone"`
	Plan                 string `json:"plan"`
	AccountID            string `json:"account_id,omitempty"`
}

type signupResponse struct {
	OrganizationID   uuid.UUID `json:"organization_id"`
	OrganizationSlug string    `json:"organization_slug"`
	AccountID        string    `json:"account_id"`
	Plan             string    `json:"plan"`
	Status           string    `json:"status"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	var body signupRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New(problem.TypeValidation, "Invalid request body", http.StatusBadRequest))
		return
	}

	result, err := h.svc.Signup(r.Context(), audit, service.Input{
		OrganizationName:     body.OrganizationName,
		BusinessType:         body.BusinessType,
		Email:                body.Email,
		Password:             body.Password,
		PasswordConfirmation: body.PasswordConfirmation,
		FullName:             body.FullName,
		Phone:                body.Phone,
		Plan:                 body.Plan,
		AccountID:            body.AccountID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		OrganizationID:   result.OrganizationID,
		OrganizationSlug: result.OrganizationSlug,
		AccountID:        result.AccountID,
		Plan:             result.PlanName,
		Status:           result.Status,
	})
}

func (h *Handler) businessTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"items": service.BusinessTypes})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	var incomplete *service.ProvisionIncompleteError
	switch {
	case errors.As(err, &validationErr):
		problem.Write(w, problem.
			New(problem.TypeValidation, "Validation failed", http.StatusBadRequest).
			WithErrors(validationErr.Fields))
	case errors.Is(err, service.ErrEmailTaken):
		problem.Write(w, problem.
			New(problem.TypeConflict, "Email already registered", http.StatusConflict).
			WithDetail("sign in instead, or use a different email"))
	case errors.Is(err, service.ErrAlreadySetUp):
		problem.Write(w, problem.
			New(problem.TypeConflict, "Account already provisioned", http.StatusConflict))
	case errors.As(err, &incomplete):
		platformlogging.FromRequest(r, h.logger).Warn("signup left an orphaned account",
			zap.String("account_id", incomplete.AccountID), zap.Error(err))
		details := problem.
			New(problem.TypeProvision, "Provisioning incomplete", http.StatusConflict).
			WithDetail("the account was created but the organization was not; retry with the returned account_id")
		details.Retryable = true
		details.Errors = map[string][]string{"account_id": {incomplete.AccountID}}
		problem.Write(w, details)
	default:
		platformlogging.FromRequest(r, h.logger).Error("signup handler failure", zap.Error(err))
		problem.Write(w, problem.New(problem.TypeInternal, "Internal server error", http.StatusInternalServerError))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

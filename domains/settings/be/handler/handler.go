package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bkpos-id/bkpos-saas/domains/settings/be/service"
	platformlogging "github.com/bkpos-id/bkpos-saas/platform/go/logging"
	"github.com/bkpos-id/bkpos-saas/platform/go/problem"
	"github.com/bkpos-id/bkpos-saas/platform/go/requesttrace"
)

// maxAssetSize bounds branding uploads.
const maxAssetSize = 2 << 20

// Handler exposes organization settings over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("settings service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes returns the settings routes for the caller's own organization.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.resolveMine)
	return r
}

// AdminRoutes returns the per-organization settings management routes,
// mounted under /admin/organizations/{orgID}/settings behind the admin guard.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.resolveForOrg)
	r.Put("/", h.update)
	r.Post("/branding-assets", h.uploadAsset)
	return r
}

type settingsResponse struct {
	OrganizationID    uuid.UUID               `json:"organization_id"`
	OrganizationName  string                  `json:"organization_name"`
	Branding          service.Branding        `json:"branding"`
	Terminology       service.Terminology     `json:"terminology"`
	Features          service.Features        `json:"features"`
	DashboardLayout   service.DashboardLayout `json:"dashboard_layout"`
	MigrationRequired bool                    `json:"migration_required,omitempty"`
}

type updateSettingsRequest struct {
	Branding        json.RawMessage `json:"branding"`
	Terminology     json.RawMessage `json:"terminology"`
	Features        json.RawMessage `json:"features"`
	DashboardLayout json.RawMessage `json:"dashboard_layout"`
	ReportTemplates json.RawMessage `json:"report_templates"`
}

func (h *Handler) resolveMine(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())

	resolved, err := h.svc.ResolveForUser(r.Context(), audit)
	h.writeResolved(w, r, resolved, err)
}

func (h *Handler) resolveForOrg(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}

	resolved, err := h.svc.ResolveForOrg(r.Context(), audit, orgID)
	h.writeResolved(w, r, resolved, err)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}

	var body updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New(problem.TypeValidation, "Invalid request body", http.StatusBadRequest))
		return
	}

	resolved, err := h.svc.Update(r.Context(), audit, orgID, service.UpdateInput{
		Branding:        body.Branding,
		Terminology:     body.Terminology,
		Features:        body.Features,
		DashboardLayout: body.DashboardLayout,
		ReportTemplates: body.ReportTemplates,
	})
	h.writeResolved(w, r, resolved, err)
}

func (h *Handler) uploadAsset(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxAssetSize); err != nil {
		problem.Write(w, problem.New(problem.TypeValidation, "Invalid multipart body", http.StatusBadRequest))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		problem.Write(w, problem.
			New(problem.TypeValidation, "Validation failed", http.StatusBadRequest).
			WithErrors(map[string][]string{"file": {"file part is required"}}))
		return
	}
	defer func() { _ = file.Close() }()

	resolved, err := h.svc.UploadBrandingAsset(r.Context(), audit, orgID, service.AssetUpload{
		Kind:        r.FormValue("kind"),
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
		Body:        http.MaxBytesReader(w, file, maxAssetSize),
	})
	h.writeResolved(w, r, resolved, err)
}

// writeResolved renders a resolved view. The migration signal still carries
// the full default settings, so it is a 200 with a marker, not a failure.
func (h *Handler) writeResolved(w http.ResponseWriter, r *http.Request, resolved service.Resolved, err error) {
	if err != nil && !errors.Is(err, service.ErrMigrationRequired) {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		OrganizationID:    resolved.OrganizationID,
		OrganizationName:  resolved.OrganizationName,
		Branding:          resolved.Branding,
		Terminology:       resolved.Terminology,
		Features:          resolved.Features,
		DashboardLayout:   resolved.DashboardLayout,
		MigrationRequired: errors.Is(err, service.ErrMigrationRequired),
	})
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
	case errors.Is(err, service.ErrOrgNotFound):
		problem.Write(w, problem.New(problem.TypeNotFound, "Organization not found", http.StatusNotFound))
	case errors.Is(err, service.ErrNoOrganization):
		problem.Write(w, problem.
			New(problem.TypeNotFound, "No organization", http.StatusNotFound).
			WithDetail("the signed-in user does not belong to an organization"))
	default:
		platformlogging.FromRequest(r, h.logger).Error("settings handler failure", zap.Error(err))
		problem.Write(w, problem.New(problem.TypeInternal, "Internal server error", http.StatusInternalServerError))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

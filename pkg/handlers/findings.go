package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/auditlens/auditlens-engine/pkg/apperrors"
	"github.com/auditlens/auditlens-engine/pkg/models"
	"github.com/auditlens/auditlens-engine/pkg/refdata"
	"github.com/auditlens/auditlens-engine/pkg/repositories"
)

// ListFindingsResponse wraps the findings array.
type ListFindingsResponse struct {
	Findings []*models.Finding `json:"findings"`
}

// FindingsHandler handles finding inspection requests.
type FindingsHandler struct {
	findings repositories.FindingRepository
	snapshot *refdata.Snapshot
	logger   *zap.Logger
}

// NewFindingsHandler creates a new findings handler.
func NewFindingsHandler(findings repositories.FindingRepository, snapshot *refdata.Snapshot, logger *zap.Logger) *FindingsHandler {
	return &FindingsHandler{
		findings: findings,
		snapshot: snapshot,
		logger:   logger,
	}
}

// RegisterRoutes registers the findings handler's routes on the given mux.
func (h *FindingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/findings", h.List)
	mux.HandleFunc("GET /api/findings/{id}", h.Get)
}

// List handles GET /api/findings.
// Optional query parameters: data_source_id, focus_area (code), issue_type
// (code), severity, status, limit (default 100), offset.
func (h *FindingsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.FindingFilter{
		Severity: r.URL.Query().Get("severity"),
		Status:   r.URL.Query().Get("status"),
		Limit:    queryInt(r, "limit", 100),
		Offset:   queryInt(r, "offset", 0),
	}

	dataSourceID, ok := queryUUID(r, "data_source_id")
	if !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_data_source_id", "Invalid data source ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	filter.DataSourceID = dataSourceID

	if code := r.URL.Query().Get("focus_area"); code != "" {
		fa, ok := h.snapshot.FocusAreaByCode(code)
		if !ok {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_focus_area", "Unknown focus area code"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		filter.FocusAreaID = fa.ID
	}

	if code := r.URL.Query().Get("issue_type"); code != "" {
		it, ok := h.snapshot.IssueTypeByCode(code)
		if !ok {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_issue_type", "Unknown issue type code"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		filter.IssueTypeID = it.ID
	}

	findings, err := h.findings.ListFindings(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list findings", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list findings"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if findings == nil {
		findings = []*models.Finding{}
	}
	if err := WriteJSON(w, http.StatusOK, ListFindingsResponse{Findings: findings}); err != nil {
		h.logger.Error("Failed to encode findings response", zap.Error(err))
	}
}

// Get handles GET /api/findings/{id}.
func (h *FindingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathUUID(w, r, "id", "invalid_finding_id", "Invalid finding ID format", h.logger)
	if !ok {
		return
	}

	finding, err := h.findings.GetFinding(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "finding_not_found", "Finding not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get finding",
			zap.String("finding_id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to get finding"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, finding); err != nil {
		h.logger.Error("Failed to encode finding response", zap.Error(err))
	}
}

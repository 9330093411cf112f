package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auditlens/auditlens-engine/pkg/apperrors"
	"github.com/auditlens/auditlens-engine/pkg/models"
	"github.com/auditlens/auditlens-engine/pkg/repositories"
)

// AnalysisService runs the analysis pipeline against one data source.
// Implemented by analysis.Analyzer.
type AnalysisService interface {
	AnalyzeDataSource(ctx context.Context, dataSourceID uuid.UUID) (*models.AnalysisRun, error)
}

// RunAnalysisRequest is the POST body for triggering an analysis run.
type RunAnalysisRequest struct {
	DataSourceID string `json:"data_source_id"`
}

// RunDetailResponse is an analysis run with its issue groups attached.
type RunDetailResponse struct {
	Run         *models.AnalysisRun  `json:"run"`
	IssueGroups []*models.IssueGroup `json:"issue_groups"`
}

// ListRunsResponse wraps the runs array.
type ListRunsResponse struct {
	Runs []*models.AnalysisRun `json:"runs"`
}

// AnalysisHandler handles analysis trigger and run inspection requests.
type AnalysisHandler struct {
	service  AnalysisService
	runs     repositories.AnalysisRunRepository
	findings repositories.FindingRepository
	logger   *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(service AnalysisService, runs repositories.AnalysisRunRepository, findings repositories.FindingRepository, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service:  service,
		runs:     runs,
		findings: findings,
		logger:   logger,
	}
}

// RegisterRoutes registers the analysis handler's routes on the given mux.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/analysis/run", h.Run)
	mux.HandleFunc("GET /api/analysis/runs", h.ListRuns)
	mux.HandleFunc("GET /api/analysis/runs/{id}", h.GetRun)
}

// Run handles POST /api/analysis/run.
// Triggers a synchronous analysis of the given data source and returns the
// terminal run. A run that failed mid-pipeline is still returned, with its
// failed status and bounded error message.
func (h *AnalysisHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	dataSourceID, err := uuid.Parse(req.DataSourceID)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_data_source_id", "Invalid data source ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	run, err := h.service.AnalyzeDataSource(r.Context(), dataSourceID)
	if err != nil && run == nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "data_source_not_found", "Data source not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to run analysis",
			zap.String("data_source_id", dataSourceID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to run analysis"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, run); err != nil {
		h.logger.Error("Failed to encode run response", zap.Error(err))
	}
}

// ListRuns handles GET /api/analysis/runs.
// Optional query parameters: data_source_id, limit (default 50), offset.
func (h *AnalysisHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	dataSourceID, ok := queryUUID(r, "data_source_id")
	if !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_data_source_id", "Invalid data source ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	runs, err := h.runs.List(r.Context(), dataSourceID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list analysis runs", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list analysis runs"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if runs == nil {
		runs = []*models.AnalysisRun{}
	}
	if err := WriteJSON(w, http.StatusOK, ListRunsResponse{Runs: runs}); err != nil {
		h.logger.Error("Failed to encode runs response", zap.Error(err))
	}
}

// GetRun handles GET /api/analysis/runs/{id}.
// Returns the run with its issue groups.
func (h *AnalysisHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathUUID(w, r, "id", "invalid_run_id", "Invalid run ID format", h.logger)
	if !ok {
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "run_not_found", "Analysis run not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get analysis run",
			zap.String("run_id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to get analysis run"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	groups, err := h.findings.ListIssueGroups(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list issue groups",
			zap.String("run_id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list issue groups"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if groups == nil {
		groups = []*models.IssueGroup{}
	}

	if err := WriteJSON(w, http.StatusOK, RunDetailResponse{Run: run, IssueGroups: groups}); err != nil {
		h.logger.Error("Failed to encode run detail response", zap.Error(err))
	}
}

package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/auditlens/auditlens-engine/pkg/apperrors"
	"github.com/auditlens/auditlens-engine/pkg/models"
	"github.com/auditlens/auditlens-engine/pkg/repositories"
)

// ListDataSourcesResponse wraps the data sources array.
type ListDataSourcesResponse struct {
	DataSources []*models.DataSource `json:"data_sources"`
}

// DeleteDataSourceResponse reports a delete result.
type DeleteDataSourceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DataSourcesHandler handles data source inspection requests. Upload and
// parsing live in the ingestion layer; this surface is read/delete only.
type DataSourcesHandler struct {
	dataSources repositories.DataSourceRepository
	logger      *zap.Logger
}

// NewDataSourcesHandler creates a new data sources handler.
func NewDataSourcesHandler(dataSources repositories.DataSourceRepository, logger *zap.Logger) *DataSourcesHandler {
	return &DataSourcesHandler{
		dataSources: dataSources,
		logger:      logger,
	}
}

// RegisterRoutes registers the data sources handler's routes on the given mux.
func (h *DataSourcesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/datasources", h.List)
	mux.HandleFunc("GET /api/datasources/{id}", h.Get)
	mux.HandleFunc("DELETE /api/datasources/{id}", h.Delete)
}

// List handles GET /api/datasources.
func (h *DataSourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	dataSources, err := h.dataSources.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list data sources", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list data sources"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if dataSources == nil {
		dataSources = []*models.DataSource{}
	}
	if err := WriteJSON(w, http.StatusOK, ListDataSourcesResponse{DataSources: dataSources}); err != nil {
		h.logger.Error("Failed to encode data sources response", zap.Error(err))
	}
}

// Get handles GET /api/datasources/{id}.
func (h *DataSourcesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathUUID(w, r, "id", "invalid_data_source_id", "Invalid data source ID format", h.logger)
	if !ok {
		return
	}

	ds, err := h.dataSources.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "data_source_not_found", "Data source not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get data source",
			zap.String("data_source_id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to get data source"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ds); err != nil {
		h.logger.Error("Failed to encode data source response", zap.Error(err))
	}
}

// Delete handles DELETE /api/datasources/{id}.
// Cascades to the source's records, findings, and runs at the database level.
func (h *DataSourcesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathUUID(w, r, "id", "invalid_data_source_id", "Invalid data source ID format", h.logger)
	if !ok {
		return
	}

	if err := h.dataSources.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "data_source_not_found", "Data source not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to delete data source",
			zap.String("data_source_id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to delete data source"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := DeleteDataSourceResponse{Success: true, Message: "Data source deleted"}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode delete response", zap.Error(err))
	}
}

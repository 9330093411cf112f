package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/auditlens/auditlens-engine/pkg/models"
	"github.com/auditlens/auditlens-engine/pkg/repositories"
)

func TestDashboardHandler_Summary(t *testing.T) {
	repo := &mockDashboardRepository{
		summaryFunc: func(ctx context.Context) (*repositories.DashboardSummary, error) {
			return &repositories.DashboardSummary{
				TotalDataSources:   2,
				TotalAnalysisRuns:  4,
				TotalFindings:      10,
				TotalEstimatedLoss: 125000,
				AverageRiskScore:   62.5,
				FindingsBySeverity: map[string]int{
					models.SeverityHigh:   6,
					models.SeverityMedium: 4,
				},
				FindingsByFocusArea: map[string]int{
					models.FocusAreaAccessGovernance: 10,
				},
			}, nil
		},
	}
	handler := NewDashboardHandler(repo, zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var summary repositories.DashboardSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if summary.TotalFindings != 10 {
		t.Errorf("expected 10 findings, got %d", summary.TotalFindings)
	}
	if summary.TotalEstimatedLoss != 125000 {
		t.Errorf("expected loss 125000, got %f", summary.TotalEstimatedLoss)
	}
	if summary.FindingsBySeverity[models.SeverityHigh] != 6 {
		t.Errorf("expected 6 high findings, got %d", summary.FindingsBySeverity[models.SeverityHigh])
	}
}

func TestDashboardHandler_Summary_Error(t *testing.T) {
	repo := &mockDashboardRepository{
		summaryFunc: func(ctx context.Context) (*repositories.DashboardSummary, error) {
			return nil, errors.New("connection refused")
		},
	}
	handler := NewDashboardHandler(repo, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)
	rec := httptest.NewRecorder()

	handler.Summary(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

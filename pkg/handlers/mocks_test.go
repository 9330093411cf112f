package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/auditlens/auditlens-engine/pkg/models"
	"github.com/auditlens/auditlens-engine/pkg/repositories"
)

// Shared hand-written mocks for handler tests. Each mock dispatches to an
// optional function field; unset methods return zero values.

type mockAnalysisService struct {
	analyzeFunc func(ctx context.Context, dataSourceID uuid.UUID) (*models.AnalysisRun, error)
}

func (m *mockAnalysisService) AnalyzeDataSource(ctx context.Context, dataSourceID uuid.UUID) (*models.AnalysisRun, error) {
	if m.analyzeFunc != nil {
		return m.analyzeFunc(ctx, dataSourceID)
	}
	return nil, nil
}

type mockRunRepository struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error)
	listFunc    func(ctx context.Context, dataSourceID uuid.UUID, limit, offset int) ([]*models.AnalysisRun, error)
}

func (m *mockRunRepository) Create(ctx context.Context, run *models.AnalysisRun) error { return nil }

func (m *mockRunRepository) Complete(ctx context.Context, run *models.AnalysisRun) error {
	return nil
}

func (m *mockRunRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return nil
}

func (m *mockRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockRunRepository) List(ctx context.Context, dataSourceID uuid.UUID, limit, offset int) ([]*models.AnalysisRun, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, dataSourceID, limit, offset)
	}
	return nil, nil
}

type mockFindingRepository struct {
	getFindingFunc      func(ctx context.Context, id uuid.UUID) (*models.Finding, error)
	listFindingsFunc    func(ctx context.Context, filter repositories.FindingFilter) ([]*models.Finding, error)
	listIssueGroupsFunc func(ctx context.Context, runID uuid.UUID) ([]*models.IssueGroup, error)
}

func (m *mockFindingRepository) CreateFinding(ctx context.Context, f *models.Finding) error {
	return nil
}

func (m *mockFindingRepository) CreateRiskAssessment(ctx context.Context, ra *models.RiskAssessment) error {
	return nil
}

func (m *mockFindingRepository) CreateMoneyLoss(ctx context.Context, ml *models.MoneyLossCalculation) error {
	return nil
}

func (m *mockFindingRepository) GetFinding(ctx context.Context, id uuid.UUID) (*models.Finding, error) {
	if m.getFindingFunc != nil {
		return m.getFindingFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockFindingRepository) ListFindings(ctx context.Context, filter repositories.FindingFilter) ([]*models.Finding, error) {
	if m.listFindingsFunc != nil {
		return m.listFindingsFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockFindingRepository) ReplaceIssueGroups(ctx context.Context, runID uuid.UUID, groups []*models.IssueGroup) error {
	return nil
}

func (m *mockFindingRepository) ListIssueGroups(ctx context.Context, runID uuid.UUID) ([]*models.IssueGroup, error) {
	if m.listIssueGroupsFunc != nil {
		return m.listIssueGroupsFunc(ctx, runID)
	}
	return nil, nil
}

type mockDataSourceRepository struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*models.DataSource, error)
	listFunc    func(ctx context.Context) ([]*models.DataSource, error)
	deleteFunc  func(ctx context.Context, id uuid.UUID) error
}

func (m *mockDataSourceRepository) Create(ctx context.Context, ds *models.DataSource) error {
	return nil
}

func (m *mockDataSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockDataSourceRepository) List(ctx context.Context) ([]*models.DataSource, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockDataSourceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status, errorMessage string) error {
	return nil
}

func (m *mockDataSourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockDashboardRepository struct {
	summaryFunc func(ctx context.Context) (*repositories.DashboardSummary, error)
}

func (m *mockDashboardRepository) Summary(ctx context.Context) (*repositories.DashboardSummary, error) {
	if m.summaryFunc != nil {
		return m.summaryFunc(ctx)
	}
	return nil, nil
}

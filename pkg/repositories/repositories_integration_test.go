package repositories_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditlens/auditlens-engine/pkg/apperrors"
	"github.com/auditlens/auditlens-engine/pkg/models"
	"github.com/auditlens/auditlens-engine/pkg/refdata"
	"github.com/auditlens/auditlens-engine/pkg/repositories"
	"github.com/auditlens/auditlens-engine/pkg/testhelpers"
)

func createTestDataSource(t *testing.T, repo repositories.DataSourceRepository, dataType string) *models.DataSource {
	t.Helper()
	ds := &models.DataSource{
		Filename:         uuid.NewString() + ".xlsx",
		OriginalFilename: "export.xlsx",
		FileFormat:       "xlsx",
		DataType:         dataType,
		FileSize:         2048,
	}
	require.NoError(t, repo.Create(context.Background(), ds))
	require.NotEqual(t, uuid.Nil, ds.ID)
	return ds
}

func TestReferenceRepository_LoadsSeedCatalog(t *testing.T) {
	db := testhelpers.GetEngineDB(t)
	ctx := context.Background()

	snapshot, err := refdata.Load(ctx, repositories.NewReferenceRepository(db.DB))
	require.NoError(t, err)

	areas := snapshot.FocusAreas()
	require.Len(t, areas, 6)
	assert.Equal(t, models.FocusAreaBusinessProtection, areas[0].Code)
	assert.Equal(t, models.FocusAreaS4HANAExcellence, areas[5].Code)

	require.Len(t, snapshot.IssueTypes(), 18)

	// The first issue type of each area is its weak-signal default, so seed
	// order must survive the round trip through the database.
	ag, ok := snapshot.FocusAreaByCode(models.FocusAreaAccessGovernance)
	require.True(t, ok)
	agIssues := snapshot.IssueTypesFor(ag.ID)
	require.NotEmpty(t, agIssues)
	assert.Equal(t, models.IssueTypeSoDViolation, agIssues[0].Code)
}

func TestDataSourceRepository_Lifecycle(t *testing.T) {
	db := testhelpers.GetEngineDB(t)
	ctx := context.Background()
	repo := repositories.NewDataSourceRepository(db.DB)

	ds := createTestDataSource(t, repo, models.DataTypeAlert)
	assert.Equal(t, models.DataSourceStatusPending, ds.Status)

	got, err := repo.GetByID(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.Filename, got.Filename)
	assert.Equal(t, models.DataTypeAlert, got.DataType)

	require.NoError(t, repo.UpdateStatus(ctx, ds.ID, models.DataSourceStatusError, "parse failed"))
	got, err = repo.GetByID(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DataSourceStatusError, got.Status)
	assert.Equal(t, "parse failed", got.ErrorMessage)

	sources, err := repo.List(ctx)
	require.NoError(t, err)
	var found bool
	for _, s := range sources {
		if s.ID == ds.ID {
			found = true
		}
	}
	assert.True(t, found)

	require.NoError(t, repo.Delete(ctx, ds.ID))
	_, err = repo.GetByID(ctx, ds.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, ds.ID), apperrors.ErrNotFound)
}

func TestRecordRepository_AlertRoundTrip(t *testing.T) {
	db := testhelpers.GetEngineDB(t)
	ctx := context.Background()
	dataSources := repositories.NewDataSourceRepository(db.DB)
	records := repositories.NewRecordRepository(db.DB)

	ds := createTestDataSource(t, dataSources, models.DataTypeAlert)

	meta := &models.AlertMetadata{
		DataSourceID: ds.ID,
		AlertName:    "Long Time Logged On Users 24+ hours",
		AlertID:      "SLG_000001_000001",
		Parameters:   map[string]any{"threshold_hours": 24},
	}
	require.NoError(t, records.CreateAlertMetadata(ctx, meta))
	require.NotEqual(t, uuid.Nil, meta.ID)

	alerts := []*models.Alert{
		{DataSourceID: ds.ID, UserName: "JSMITH", Duration: 26, DurationUnit: "H",
			Extra: map[string]any{"SAP System": "PRD"}},
		{DataSourceID: ds.ID, UserName: "MJONES", Duration: 31, DurationUnit: "H"},
	}
	require.NoError(t, records.InsertAlerts(ctx, alerts))
	for _, a := range alerts {
		assert.NotEqual(t, uuid.Nil, a.ID)
	}

	listed, err := records.ListAlertsByDataSource(ctx, ds.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	byUser := make(map[string]*models.Alert, len(listed))
	for _, a := range listed {
		byUser[a.UserName] = a
	}
	require.Contains(t, byUser, "JSMITH")
	require.Contains(t, byUser, "MJONES")
	assert.Equal(t, "PRD", byUser["JSMITH"].Extra["SAP System"])
	assert.Equal(t, 26, byUser["JSMITH"].Duration)

	gotMeta, err := records.GetAlertMetadata(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.AlertName, gotMeta.AlertName)

	_, err = records.GetAlertMetadata(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRecordRepository_ReportRoundTrip(t *testing.T) {
	db := testhelpers.GetEngineDB(t)
	ctx := context.Background()
	dataSources := repositories.NewDataSourceRepository(db.DB)
	records := repositories.NewRecordRepository(db.DB)

	ds := createTestDataSource(t, dataSources, models.DataTypeReport)

	meta := &models.SoDAReportMetadata{
		DataSourceID: ds.ID,
		ReportType:   "AVR",
		ReportName:   "Authorization Violation Report",
		KPIs:         map[string]any{"violations": 12},
		ResultCount:  2,
	}
	require.NoError(t, records.CreateReportMetadata(ctx, meta))

	reports := []*models.SoDAReport{
		{DataSourceID: ds.ID, UserName: "JSMITH", RiskID: "R001", RiskLevel: models.SeverityHigh},
		{DataSourceID: ds.ID, RoleName: "FI_CLERK", RiskLevel: models.SeverityMedium},
	}
	require.NoError(t, records.InsertReports(ctx, reports))

	listed, err := records.ListReportsByDataSource(ctx, ds.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	levels := make(map[string]bool, len(listed))
	for _, rep := range listed {
		levels[rep.RiskLevel] = true
	}
	assert.True(t, levels[models.SeverityHigh])
	assert.True(t, levels[models.SeverityMedium])

	gotMeta, err := records.GetReportMetadata(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "AVR", gotMeta.ReportType)
	assert.Equal(t, 2, gotMeta.ResultCount)
}

func TestFindingRepository_FullChain(t *testing.T) {
	db := testhelpers.GetEngineDB(t)
	ctx := context.Background()
	dataSources := repositories.NewDataSourceRepository(db.DB)
	findings := repositories.NewFindingRepository(db.DB)

	snapshot, err := refdata.Load(ctx, repositories.NewReferenceRepository(db.DB))
	require.NoError(t, err)
	ag, _ := snapshot.FocusAreaByCode(models.FocusAreaAccessGovernance)
	sod, _ := snapshot.IssueTypeByCode(models.IssueTypeSoDViolation)

	ds := createTestDataSource(t, dataSources, models.DataTypeReport)

	finding := &models.Finding{
		DataSourceID:             ds.ID,
		FocusAreaID:              ag.ID,
		IssueTypeID:              &sod.ID,
		Title:                    "AVR - JSMITH",
		Description:              "SoDA report: AVR",
		Severity:                 models.SeverityHigh,
		ClassificationConfidence: 0.3,
	}
	require.NoError(t, findings.CreateFinding(ctx, finding))
	assert.Equal(t, models.FindingStatusNew, finding.Status)

	assessment := &models.RiskAssessment{
		FindingID:     finding.ID,
		RiskScore:     76,
		RiskLevel:     models.SeverityHigh,
		RiskCategory:  models.RiskCategoryOperational,
		BaseScore:     70,
		Multiplier:    1.09,
		AffectedUsers: 1,
	}
	require.NoError(t, findings.CreateRiskAssessment(ctx, assessment))

	// One assessment per finding.
	dup := &models.RiskAssessment{FindingID: finding.ID, RiskScore: 10, RiskLevel: models.SeverityLow, RiskCategory: models.RiskCategoryOperational}
	assert.ErrorIs(t, findings.CreateRiskAssessment(ctx, dup), apperrors.ErrConflict)

	llmEstimate := 50000.0
	calc := &models.MoneyLossCalculation{
		FindingID:         finding.ID,
		EstimatedLoss:     35000,
		Confidence:        0.5,
		CalculationMethod: models.CalculationMethodML,
		LLMEstimate:       &llmEstimate,
		Reasoning:         "severity default",
		FactorsConsidered: []string{"severity"},
		Breakdown:         map[string]float64{"direct_losses": 21000},
	}
	require.NoError(t, findings.CreateMoneyLoss(ctx, calc))

	got, err := findings.GetFinding(ctx, finding.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RiskAssessment)
	assert.Equal(t, 76, got.RiskAssessment.RiskScore)
	require.NotNil(t, got.MoneyLossCalculation)
	assert.Equal(t, 35000.0, got.MoneyLossCalculation.EstimatedLoss)
	require.NotNil(t, got.MoneyLossCalculation.LLMEstimate)
	assert.Equal(t, 50000.0, *got.MoneyLossCalculation.LLMEstimate)
	assert.Equal(t, []string{"severity"}, got.MoneyLossCalculation.FactorsConsidered)
	assert.Equal(t, 21000.0, got.MoneyLossCalculation.Breakdown["direct_losses"])

	listed, err := findings.ListFindings(ctx, repositories.FindingFilter{
		DataSourceID: ds.ID,
		Severity:     models.SeverityHigh,
	})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, finding.ID, listed[0].ID)

	listed, err = findings.ListFindings(ctx, repositories.FindingFilter{
		DataSourceID: ds.ID,
		Severity:     models.SeverityLow,
	})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestFindingRepository_ReplaceIssueGroupsIdempotent(t *testing.T) {
	db := testhelpers.GetEngineDB(t)
	ctx := context.Background()
	dataSources := repositories.NewDataSourceRepository(db.DB)
	findings := repositories.NewFindingRepository(db.DB)
	runs := repositories.NewAnalysisRunRepository(db.DB)

	snapshot, err := refdata.Load(ctx, repositories.NewReferenceRepository(db.DB))
	require.NoError(t, err)
	sod, _ := snapshot.IssueTypeByCode(models.IssueTypeSoDViolation)
	longSession, _ := snapshot.IssueTypeByCode(models.IssueTypeLongSession)

	ds := createTestDataSource(t, dataSources, models.DataTypeReport)
	run := &models.AnalysisRun{DataSourceID: ds.ID, RunName: "test run"}
	require.NoError(t, runs.Create(ctx, run))

	first := []*models.IssueGroup{
		{IssueTypeID: sod.ID, FindingCount: 2, TotalRiskScore: 150, TotalMoneyLoss: 70000, Summary: "2 findings"},
	}
	require.NoError(t, findings.ReplaceIssueGroups(ctx, run.ID, first))

	second := []*models.IssueGroup{
		{IssueTypeID: sod.ID, FindingCount: 3, TotalRiskScore: 220, TotalMoneyLoss: 90000, Summary: "3 findings"},
		{IssueTypeID: longSession.ID, FindingCount: 1, TotalRiskScore: 50, TotalMoneyLoss: 7500, Summary: "1 finding"},
	}
	require.NoError(t, findings.ReplaceIssueGroups(ctx, run.ID, second))

	groups, err := findings.ListIssueGroups(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, 3, groups[0].FindingCount) // highest risk first
	assert.Equal(t, sod.ID, groups[0].IssueTypeID)
}

func TestAnalysisRunRepository_Lifecycle(t *testing.T) {
	db := testhelpers.GetEngineDB(t)
	ctx := context.Background()
	dataSources := repositories.NewDataSourceRepository(db.DB)
	runs := repositories.NewAnalysisRunRepository(db.DB)

	ds := createTestDataSource(t, dataSources, models.DataTypeAlert)

	run := &models.AnalysisRun{DataSourceID: ds.ID, RunName: "Analysis of export.xlsx"}
	require.NoError(t, runs.Create(ctx, run))
	assert.Equal(t, models.RunStatusRunning, run.Status)

	run.TotalFindings = 3
	run.TotalRiskScore = 150
	run.TotalMoneyLoss = 22500
	run.FindingsByFocusArea = map[string]int{models.FocusAreaAccessGovernance: 3}
	run.FindingsByIssueType = map[string]int{models.IssueTypeLongSession: 3}
	require.NoError(t, runs.Complete(ctx, run))
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	require.NotNil(t, run.CompletedAt)

	// Terminal states are final.
	assert.ErrorIs(t, runs.Complete(ctx, run), apperrors.ErrNotFound)
	assert.ErrorIs(t, runs.Fail(ctx, run.ID, "late failure"), apperrors.ErrNotFound)

	got, err := runs.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Equal(t, 3, got.TotalFindings)
	assert.Equal(t, 22500.0, got.TotalMoneyLoss)
	assert.Equal(t, map[string]int{models.FocusAreaAccessGovernance: 3}, got.FindingsByFocusArea)

	listed, err := runs.List(ctx, ds.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, run.ID, listed[0].ID)

	failed := &models.AnalysisRun{DataSourceID: ds.ID, RunName: "second run"}
	require.NoError(t, runs.Create(ctx, failed))
	require.NoError(t, runs.Fail(ctx, failed.ID, "connection reset"))
	got, err = runs.GetByID(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
	assert.Equal(t, "connection reset", got.ErrorMessage)
}

func TestDashboardRepository_Summary(t *testing.T) {
	db := testhelpers.GetEngineDB(t)
	ctx := context.Background()
	dashboard := repositories.NewDashboardRepository(db.DB)

	summary, err := dashboard.Summary(ctx)
	require.NoError(t, err)

	// Prior tests in this package insert real rows; only shape and
	// monotonicity are asserted here.
	assert.GreaterOrEqual(t, summary.TotalDataSources, 0)
	assert.GreaterOrEqual(t, summary.TotalFindings, 0)
	assert.NotNil(t, summary.FindingsBySeverity)
	assert.NotNil(t, summary.FindingsByFocusArea)
}

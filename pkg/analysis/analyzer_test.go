package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auditlens/auditlens-engine/pkg/apperrors"
	"github.com/auditlens/auditlens-engine/pkg/models"
	"github.com/auditlens/auditlens-engine/pkg/moneyloss"
	"github.com/auditlens/auditlens-engine/pkg/refdata"
	"github.com/auditlens/auditlens-engine/pkg/repositories"
)

// Mock DataSourceRepository
type mockDataSourceRepo struct {
	sources map[uuid.UUID]*models.DataSource
}

func (m *mockDataSourceRepo) Create(ctx context.Context, ds *models.DataSource) error { return nil }

func (m *mockDataSourceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	if ds, ok := m.sources[id]; ok {
		return ds, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDataSourceRepo) List(ctx context.Context) ([]*models.DataSource, error) {
	return nil, nil
}

func (m *mockDataSourceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status, errorMessage string) error {
	return nil
}

func (m *mockDataSourceRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

// Mock RecordRepository
type mockRecordRepo struct {
	alertMeta  *models.AlertMetadata
	alerts     []*models.Alert
	reportMeta *models.SoDAReportMetadata
	reports    []*models.SoDAReport
}

func (m *mockRecordRepo) CreateAlertMetadata(ctx context.Context, meta *models.AlertMetadata) error {
	return nil
}

func (m *mockRecordRepo) CreateReportMetadata(ctx context.Context, meta *models.SoDAReportMetadata) error {
	return nil
}

func (m *mockRecordRepo) InsertAlerts(ctx context.Context, alerts []*models.Alert) error { return nil }

func (m *mockRecordRepo) InsertReports(ctx context.Context, reports []*models.SoDAReport) error {
	return nil
}

func (m *mockRecordRepo) ListAlertsByDataSource(ctx context.Context, dataSourceID uuid.UUID) ([]*models.Alert, error) {
	return m.alerts, nil
}

func (m *mockRecordRepo) ListReportsByDataSource(ctx context.Context, dataSourceID uuid.UUID) ([]*models.SoDAReport, error) {
	return m.reports, nil
}

func (m *mockRecordRepo) GetAlertMetadata(ctx context.Context, dataSourceID uuid.UUID) (*models.AlertMetadata, error) {
	if m.alertMeta == nil {
		return nil, apperrors.ErrNotFound
	}
	return m.alertMeta, nil
}

func (m *mockRecordRepo) GetReportMetadata(ctx context.Context, dataSourceID uuid.UUID) (*models.SoDAReportMetadata, error) {
	if m.reportMeta == nil {
		return nil, apperrors.ErrNotFound
	}
	return m.reportMeta, nil
}

// Mock FindingRepository
type mockFindingRepo struct {
	findings    []*models.Finding
	assessments []*models.RiskAssessment
	calcs       []*models.MoneyLossCalculation
	groups      []*models.IssueGroup

	replaceGroupCalls    int
	createAssessmentFunc func(ctx context.Context, ra *models.RiskAssessment) error
}

func (m *mockFindingRepo) CreateFinding(ctx context.Context, f *models.Finding) error {
	f.ID = uuid.New()
	m.findings = append(m.findings, f)
	return nil
}

func (m *mockFindingRepo) CreateRiskAssessment(ctx context.Context, ra *models.RiskAssessment) error {
	if m.createAssessmentFunc != nil {
		return m.createAssessmentFunc(ctx, ra)
	}
	ra.ID = uuid.New()
	m.assessments = append(m.assessments, ra)
	return nil
}

func (m *mockFindingRepo) CreateMoneyLoss(ctx context.Context, ml *models.MoneyLossCalculation) error {
	ml.ID = uuid.New()
	m.calcs = append(m.calcs, ml)
	return nil
}

func (m *mockFindingRepo) GetFinding(ctx context.Context, id uuid.UUID) (*models.Finding, error) {
	return nil, apperrors.ErrNotFound
}

func (m *mockFindingRepo) ListFindings(ctx context.Context, filter repositories.FindingFilter) ([]*models.Finding, error) {
	return m.findings, nil
}

func (m *mockFindingRepo) ReplaceIssueGroups(ctx context.Context, runID uuid.UUID, groups []*models.IssueGroup) error {
	m.replaceGroupCalls++
	m.groups = groups
	return nil
}

func (m *mockFindingRepo) ListIssueGroups(ctx context.Context, runID uuid.UUID) ([]*models.IssueGroup, error) {
	return m.groups, nil
}

// Mock AnalysisRunRepository
type mockRunRepo struct {
	created   *models.AnalysisRun
	completed bool
	failedMsg string
}

func (m *mockRunRepo) Create(ctx context.Context, run *models.AnalysisRun) error {
	run.ID = uuid.New()
	m.created = run
	return nil
}

func (m *mockRunRepo) Complete(ctx context.Context, run *models.AnalysisRun) error {
	m.completed = true
	run.Status = models.RunStatusCompleted
	return nil
}

func (m *mockRunRepo) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	m.failedMsg = errorMessage
	return nil
}

func (m *mockRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error) {
	return m.created, nil
}

func (m *mockRunRepo) List(ctx context.Context, dataSourceID uuid.UUID, limit, offset int) ([]*models.AnalysisRun, error) {
	return nil, nil
}

type analyzerFixture struct {
	analyzer    *Analyzer
	snapshot    *refdata.Snapshot
	dataSources *mockDataSourceRepo
	records     *mockRecordRepo
	findings    *mockFindingRepo
	runs        *mockRunRepo
}

// newFixture builds an analyzer over in-memory repositories with the
// generative path disabled and the ML path degraded to its default table.
func newFixture(t *testing.T, useLLM, useML bool) *analyzerFixture {
	t.Helper()

	snapshot := refdata.Defaults()
	logger := zap.NewNop()
	engine := moneyloss.NewHybridEngine(
		moneyloss.NewLLMEstimator(nil, logger),
		moneyloss.NewMLEstimator(filepath.Join(t.TempDir(), "missing.yaml"), logger),
		logger,
	)

	f := &analyzerFixture{
		snapshot:    snapshot,
		dataSources: &mockDataSourceRepo{sources: make(map[uuid.UUID]*models.DataSource)},
		records:     &mockRecordRepo{},
		findings:    &mockFindingRepo{},
		runs:        &mockRunRepo{},
	}
	f.analyzer = NewAnalyzer(f.dataSources, f.records, f.findings, f.runs, snapshot, engine, useLLM, useML, logger)
	return f
}

func (f *analyzerFixture) addAlertSource(filename, alertName string, userNames ...string) *models.DataSource {
	ds := &models.DataSource{
		ID:       uuid.New(),
		Filename: filename,
		DataType: models.DataTypeAlert,
	}
	f.dataSources.sources[ds.ID] = ds
	f.records.alertMeta = &models.AlertMetadata{
		ID:           uuid.New(),
		DataSourceID: ds.ID,
		AlertName:    alertName,
		AlertID:      "SLG_000001_000001",
	}
	for _, name := range userNames {
		f.records.alerts = append(f.records.alerts, &models.Alert{
			ID:           uuid.New(),
			DataSourceID: ds.ID,
			UserName:     name,
		})
	}
	return ds
}

func TestAnalyzer_AlertPipelineEndToEnd(t *testing.T) {
	f := newFixture(t, false, true)
	ds := f.addAlertSource("logged_on_users.xlsx", "Long Time Logged On Users 24+ hours", "JSMITH", "MJONES", "ADOE")

	run, err := f.analyzer.AnalyzeDataSource(context.Background(), ds.ID)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.True(t, f.runs.completed)
	assert.Equal(t, "Analysis of logged_on_users.xlsx", run.RunName)

	require.Len(t, f.findings.findings, 3)
	ag, _ := f.snapshot.FocusAreaByCode(models.FocusAreaAccessGovernance)
	longSession, _ := f.snapshot.IssueTypeByCode(models.IssueTypeLongSession)
	for _, finding := range f.findings.findings {
		assert.Equal(t, ag.ID, finding.FocusAreaID)
		require.NotNil(t, finding.IssueTypeID)
		assert.Equal(t, longSession.ID, *finding.IssueTypeID)
		assert.Equal(t, models.SeverityMedium, finding.Severity)
		assert.NotNil(t, finding.AlertID)
		assert.Nil(t, finding.SoDAReportID)
		// Focus score is the binding constraint: one of nine patterns
		// matched, squared.
		assert.InDelta(t, 1.0/81.0, finding.ClassificationConfidence, 1e-9)
	}
	assert.Equal(t, "Long Time Logged On Users 24+ hours - JSMITH", f.findings.findings[0].Title)

	// LONG_SESSION multiplier 0.8 damped by the low confidence keeps the
	// score at the Medium baseline.
	require.Len(t, f.findings.assessments, 3)
	for _, ra := range f.findings.assessments {
		assert.Equal(t, 50, ra.RiskScore)
		assert.Equal(t, models.SeverityMedium, ra.RiskLevel)
		assert.Equal(t, 50, ra.BaseScore)
		assert.Equal(t, 1, ra.AffectedUsers)
	}

	// ML-only mode without a trained model: severity default estimates.
	require.Len(t, f.findings.calcs, 3)
	for _, calc := range f.findings.calcs {
		assert.Equal(t, models.CalculationMethodML, calc.CalculationMethod)
		assert.Equal(t, 7500.0, calc.EstimatedLoss)
	}

	assert.Equal(t, 3, run.TotalFindings)
	assert.Equal(t, 150, run.TotalRiskScore)
	assert.Equal(t, 22500.0, run.TotalMoneyLoss)
	assert.Equal(t, map[string]int{models.FocusAreaAccessGovernance: 3}, run.FindingsByFocusArea)
	assert.Equal(t, map[string]int{models.IssueTypeLongSession: 3}, run.FindingsByIssueType)

	require.Len(t, f.findings.groups, 1)
	group := f.findings.groups[0]
	assert.Equal(t, longSession.ID, group.IssueTypeID)
	assert.Equal(t, 3, group.FindingCount)
	assert.Equal(t, 150, group.TotalRiskScore)
	assert.Equal(t, 22500.0, group.TotalMoneyLoss)
	assert.Equal(t, "3 findings of type Long Session Duration", group.Summary)
}

func TestAnalyzer_UnclassifiableSourceCompletesEmpty(t *testing.T) {
	f := newFixture(t, false, true)
	ds := f.addAlertSource("untitled.xlsx", "Weekly Export", "JSMITH")

	run, err := f.analyzer.AnalyzeDataSource(context.Background(), ds.ID)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 0, run.TotalFindings)
	assert.Equal(t, 0, run.TotalRiskScore)
	assert.Equal(t, 0.0, run.TotalMoneyLoss)
	assert.Empty(t, f.findings.findings)
	assert.Zero(t, f.findings.replaceGroupCalls)
}

func TestAnalyzer_FilenameFallbackClassifies(t *testing.T) {
	f := newFixture(t, false, true)
	ds := f.addAlertSource("spool_overview.xlsx", "Weekly Export", "JSMITH")

	run, err := f.analyzer.AnalyzeDataSource(context.Background(), ds.ID)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	require.Len(t, f.findings.findings, 1)

	tc, _ := f.snapshot.FocusAreaByCode(models.FocusAreaTechnicalControl)
	finding := f.findings.findings[0]
	assert.Equal(t, tc.ID, finding.FocusAreaID)
	// Weak signal within the area: first registered issue type at its
	// fixed confidence, which undercuts the filename confidence.
	systemDump, _ := f.snapshot.IssueTypeByCode(models.IssueTypeSystemDump)
	assert.Equal(t, systemDump.ID, *finding.IssueTypeID)
	assert.Equal(t, systemDump.DefaultSeverity, finding.Severity)
	assert.InDelta(t, 0.3, finding.ClassificationConfidence, 1e-9)
}

func TestAnalyzer_MissingMetadataCompletesEmpty(t *testing.T) {
	f := newFixture(t, false, true)
	ds := &models.DataSource{ID: uuid.New(), Filename: "x.xlsx", DataType: models.DataTypeAlert}
	f.dataSources.sources[ds.ID] = ds

	run, err := f.analyzer.AnalyzeDataSource(context.Background(), ds.ID)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 0, run.TotalFindings)
}

func TestAnalyzer_ReportPipelineDefaultsToAccessGovernance(t *testing.T) {
	f := newFixture(t, false, true)
	ds := &models.DataSource{ID: uuid.New(), Filename: "export.xlsx", DataType: models.DataTypeReport}
	f.dataSources.sources[ds.ID] = ds
	f.records.reportMeta = &models.SoDAReportMetadata{
		ID:           uuid.New(),
		DataSourceID: ds.ID,
		ReportType:   "AVR",
	}
	f.records.reports = []*models.SoDAReport{
		{ID: uuid.New(), DataSourceID: ds.ID, UserName: "JSMITH", RiskLevel: models.SeverityHigh},
		{ID: uuid.New(), DataSourceID: ds.ID, RoleName: "FI_CLERK"},
	}

	run, err := f.analyzer.AnalyzeDataSource(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)

	require.Len(t, f.findings.findings, 2)
	ag, _ := f.snapshot.FocusAreaByCode(models.FocusAreaAccessGovernance)
	sod, _ := f.snapshot.IssueTypeByCode(models.IssueTypeSoDViolation)

	first := f.findings.findings[0]
	assert.Equal(t, ag.ID, first.FocusAreaID)
	assert.Equal(t, sod.ID, *first.IssueTypeID)
	// The report's own risk level outranks the issue type default.
	assert.Equal(t, models.SeverityHigh, first.Severity)
	assert.Equal(t, "AVR - JSMITH", first.Title)
	assert.NotNil(t, first.SoDAReportID)
	assert.Nil(t, first.AlertID)

	second := f.findings.findings[1]
	assert.Equal(t, sod.DefaultSeverity, second.Severity) // no row risk level
	assert.Equal(t, "AVR - FI_CLERK", second.Title)
}

func TestAnalyzer_EveryFindingGetsMoneyLossRow(t *testing.T) {
	// Both estimators disabled: the engine's terminal fallback must still
	// produce one calculation per finding.
	f := newFixture(t, false, false)
	ds := f.addAlertSource("logged_on_users.xlsx", "Long Time Logged On Users 24+ hours", "A", "B", "C")

	_, err := f.analyzer.AnalyzeDataSource(context.Background(), ds.ID)
	require.NoError(t, err)

	require.Len(t, f.findings.calcs, len(f.findings.findings))
	for _, calc := range f.findings.calcs {
		assert.Equal(t, models.CalculationMethodFallback, calc.CalculationMethod)
		assert.Equal(t, 5000.0, calc.EstimatedLoss)
		assert.Equal(t, 0.2, calc.Confidence)
	}
}

func TestAnalyzer_PersistenceFailureFailsRun(t *testing.T) {
	f := newFixture(t, false, true)
	ds := f.addAlertSource("logged_on_users.xlsx", "Long Time Logged On Users 24+ hours", "JSMITH")
	f.findings.createAssessmentFunc = func(ctx context.Context, ra *models.RiskAssessment) error {
		return errors.New("connection reset")
	}

	run, err := f.analyzer.AnalyzeDataSource(context.Background(), ds.ID)
	require.Error(t, err)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, f.runs.failedMsg, "connection reset")
	assert.False(t, f.runs.completed)
}

func TestAnalyzer_ErrorMessageBounded(t *testing.T) {
	f := newFixture(t, false, true)
	ds := f.addAlertSource("logged_on_users.xlsx", "Long Time Logged On Users 24+ hours", "JSMITH")
	// Multibyte runes make sure the bound never cuts mid-sequence.
	f.findings.createAssessmentFunc = func(ctx context.Context, ra *models.RiskAssessment) error {
		return errors.New(strings.Repeat("ü", 1200))
	}

	run, err := f.analyzer.AnalyzeDataSource(context.Background(), ds.ID)
	require.Error(t, err)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.LessOrEqual(t, len(f.runs.failedMsg), errorMessageMaxLen)
	assert.LessOrEqual(t, len(run.ErrorMessage), errorMessageMaxLen)
	assert.True(t, utf8.ValidString(f.runs.failedMsg))
	assert.True(t, utf8.ValidString(run.ErrorMessage))
}

func TestAnalyzer_UnknownDataSource(t *testing.T) {
	f := newFixture(t, false, true)

	_, err := f.analyzer.AnalyzeDataSource(context.Background(), uuid.New())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, f.runs.created)
}

func TestAnalyzer_AggregatesAreOrderIndependent(t *testing.T) {
	// Two runs over the same rows in reversed order produce identical
	// totals; sums and counts are commutative.
	totals := func(names []string) (*models.AnalysisRun, error) {
		f := newFixture(t, false, true)
		ds := f.addAlertSource("logged_on_users.xlsx", "Long Time Logged On Users 24+ hours", names...)
		return f.analyzer.AnalyzeDataSource(context.Background(), ds.ID)
	}

	forward, err := totals([]string{"A", "B", "C"})
	require.NoError(t, err)
	reversed, err := totals([]string{"C", "B", "A"})
	require.NoError(t, err)

	assert.Equal(t, forward.TotalFindings, reversed.TotalFindings)
	assert.Equal(t, forward.TotalRiskScore, reversed.TotalRiskScore)
	assert.Equal(t, forward.TotalMoneyLoss, reversed.TotalMoneyLoss)
	assert.Equal(t, forward.FindingsByFocusArea, reversed.FindingsByFocusArea)
	assert.Equal(t, forward.FindingsByIssueType, reversed.FindingsByIssueType)
}

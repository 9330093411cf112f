package analysis

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auditlens/auditlens-engine/pkg/apperrors"
	"github.com/auditlens/auditlens-engine/pkg/models"
	"github.com/auditlens/auditlens-engine/pkg/moneyloss"
	"github.com/auditlens/auditlens-engine/pkg/refdata"
	"github.com/auditlens/auditlens-engine/pkg/repositories"
)

// errorMessageMaxLen bounds stored error messages so a large wrapped error
// chain cannot overflow display or storage.
const errorMessageMaxLen = 500

// defaultReportConfidence is assigned when a SoDA report source cannot be
// classified and falls back to Access Governance.
const defaultReportConfidence = 0.8

// Analyzer drives the full pipeline over one data source: classification,
// per-row finding creation with risk and money loss attachment, then
// run-level aggregation.
type Analyzer struct {
	dataSources repositories.DataSourceRepository
	records     repositories.RecordRepository
	findings    repositories.FindingRepository
	runs        repositories.AnalysisRunRepository

	snapshot        *refdata.Snapshot
	focusClassifier *FocusAreaClassifier
	issueClassifier *IssueTypeClassifier
	riskScorer      *RiskScorer
	lossEngine      *moneyloss.HybridEngine

	useLLM bool
	useML  bool

	logger *zap.Logger
}

// NewAnalyzer wires the pipeline. The snapshot is shared, read-only
// reference data; useLLM and useML select which money loss estimators run.
func NewAnalyzer(
	dataSources repositories.DataSourceRepository,
	records repositories.RecordRepository,
	findings repositories.FindingRepository,
	runs repositories.AnalysisRunRepository,
	snapshot *refdata.Snapshot,
	lossEngine *moneyloss.HybridEngine,
	useLLM, useML bool,
	logger *zap.Logger,
) *Analyzer {
	return &Analyzer{
		dataSources:     dataSources,
		records:         records,
		findings:        findings,
		runs:            runs,
		snapshot:        snapshot,
		focusClassifier: NewFocusAreaClassifier(snapshot),
		issueClassifier: NewIssueTypeClassifier(snapshot),
		riskScorer:      NewRiskScorer(),
		lossEngine:      lossEngine,
		useLLM:          useLLM,
		useML:           useML,
		logger:          logger.Named("analyzer"),
	}
}

// AnalyzeDataSource runs the pipeline against one data source. It always
// returns a terminal run: completed with aggregates, or failed with a
// bounded error message (in which case the error is also returned).
// A data source that cannot be classified completes with zero findings.
func (a *Analyzer) AnalyzeDataSource(ctx context.Context, dataSourceID uuid.UUID) (*models.AnalysisRun, error) {
	dataSource, err := a.dataSources.GetByID(ctx, dataSourceID)
	if err != nil {
		return nil, fmt.Errorf("load data source: %w", err)
	}

	run := &models.AnalysisRun{
		DataSourceID: dataSource.ID,
		RunName:      fmt.Sprintf("Analysis of %s", dataSource.Filename),
	}
	if err := a.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create analysis run: %w", err)
	}

	a.logger.Info("analysis run started",
		zap.String("run_id", run.ID.String()),
		zap.String("data_source_id", dataSource.ID.String()),
		zap.String("data_type", dataSource.DataType))

	if err := a.analyze(ctx, dataSource, run); err != nil {
		if failErr := a.runs.Fail(ctx, run.ID, truncate(err.Error(), errorMessageMaxLen)); failErr != nil {
			a.logger.Error("failed to mark run failed",
				zap.String("run_id", run.ID.String()),
				zap.Error(failErr))
		}
		run.Status = models.RunStatusFailed
		run.ErrorMessage = truncate(err.Error(), errorMessageMaxLen)
		return run, err
	}

	a.logger.Info("analysis run completed",
		zap.String("run_id", run.ID.String()),
		zap.Int("total_findings", run.TotalFindings),
		zap.Int("total_risk_score", run.TotalRiskScore),
		zap.Float64("total_money_loss", run.TotalMoneyLoss))

	return run, nil
}

func (a *Analyzer) analyze(ctx context.Context, dataSource *models.DataSource, run *models.AnalysisRun) error {
	var findings []*models.Finding
	var err error

	switch dataSource.DataType {
	case models.DataTypeAlert:
		findings, err = a.analyzeAlerts(ctx, dataSource)
	case models.DataTypeReport:
		findings, err = a.analyzeReports(ctx, dataSource)
	default:
		err = fmt.Errorf("unknown data type %q", dataSource.DataType)
	}
	if err != nil {
		return err
	}

	if len(findings) > 0 {
		if err := a.groupFindings(ctx, run, findings); err != nil {
			return err
		}
	}

	a.aggregate(run, findings)
	if err := a.runs.Complete(ctx, run); err != nil {
		return fmt.Errorf("complete analysis run: %w", err)
	}

	return nil
}

// analyzeAlerts handles an alert data source. Classification runs once per
// source and is amortized across all of its rows.
func (a *Analyzer) analyzeAlerts(ctx context.Context, dataSource *models.DataSource) ([]*models.Finding, error) {
	meta, err := a.records.GetAlertMetadata(ctx, dataSource.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load alert metadata: %w", err)
	}

	alerts, err := a.records.ListAlertsByDataSource(ctx, dataSource.ID)
	if err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}

	sig := Signals{
		AlertName: meta.AlertName,
		Fields:    map[string]any{"alert_id": meta.AlertID},
	}

	focusArea, focusConfidence := a.focusClassifier.Classify(sig)
	if focusArea == nil {
		focusArea, focusConfidence = a.focusClassifier.ClassifyFilename(dataSource.Filename)
	}
	if focusArea == nil {
		a.logger.Info("alert source not classifiable, emitting zero findings",
			zap.String("data_source_id", dataSource.ID.String()),
			zap.String("alert_name", meta.AlertName))
		return nil, nil
	}

	issueType, issueConfidence := a.issueClassifier.Classify(focusArea, sig)

	confidence := focusConfidence
	if issueType != nil && issueConfidence < confidence {
		confidence = issueConfidence
	}

	severity := models.SeverityMedium
	if issueType != nil {
		severity = issueType.DefaultSeverity
	}

	findings := make([]*models.Finding, 0, len(alerts))
	for _, alert := range alerts {
		userName := alert.UserName
		if userName == "" {
			userName = "Unknown User"
		}

		finding := &models.Finding{
			DataSourceID:             dataSource.ID,
			AlertID:                  &alert.ID,
			FocusAreaID:              focusArea.ID,
			Title:                    fmt.Sprintf("%s - %s", meta.AlertName, userName),
			Description:              fmt.Sprintf("Alert detected: %s", meta.AlertName),
			Severity:                 severity,
			ClassificationConfidence: confidence,
		}
		if issueType != nil {
			finding.IssueTypeID = &issueType.ID
		}
		if alert.Timestamp != nil {
			finding.DetectedAt = *alert.Timestamp
		} else {
			finding.DetectedAt = alert.CreatedAt
		}

		if err := a.processFinding(ctx, finding, issueType, focusArea,
			fmt.Sprintf("Risk associated with %s", meta.AlertName)); err != nil {
			return nil, err
		}

		findings = append(findings, finding)
	}

	return findings, nil
}

// analyzeReports handles a SoDA report data source. Unclassifiable report
// sources default to Access Governance rather than emitting nothing.
func (a *Analyzer) analyzeReports(ctx context.Context, dataSource *models.DataSource) ([]*models.Finding, error) {
	meta, err := a.records.GetReportMetadata(ctx, dataSource.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load report metadata: %w", err)
	}

	reports, err := a.records.ListReportsByDataSource(ctx, dataSource.ID)
	if err != nil {
		return nil, fmt.Errorf("load soda reports: %w", err)
	}

	sig := Signals{
		ReportType: meta.ReportType,
		Fields:     map[string]any{"report_type": meta.ReportType},
	}

	focusArea, focusConfidence := a.focusClassifier.Classify(sig)
	if focusArea == nil {
		focusArea, focusConfidence = a.focusClassifier.ClassifyFilename(dataSource.Filename)
	}
	if focusArea == nil {
		fa, ok := a.snapshot.FocusAreaByCode(models.FocusAreaAccessGovernance)
		if !ok {
			return nil, fmt.Errorf("reference data missing focus area %s", models.FocusAreaAccessGovernance)
		}
		focusArea, focusConfidence = fa, defaultReportConfidence
	}

	issueType, issueConfidence := a.issueClassifier.Classify(focusArea, sig)

	confidence := focusConfidence
	if issueType != nil && issueConfidence < confidence {
		confidence = issueConfidence
	}

	reportName := meta.ReportName
	if reportName == "" {
		reportName = meta.ReportType
	}

	findings := make([]*models.Finding, 0, len(reports))
	for _, report := range reports {
		subject := report.UserName
		if subject == "" {
			subject = report.RoleName
		}
		if subject == "" {
			subject = "Unknown"
		}

		// The report's own risk level takes precedence over the issue
		// type default.
		severity := models.SeverityMedium
		if issueType != nil {
			severity = issueType.DefaultSeverity
		}
		if models.ValidSeverity(report.RiskLevel) {
			severity = report.RiskLevel
		}

		finding := &models.Finding{
			DataSourceID:             dataSource.ID,
			SoDAReportID:             &report.ID,
			FocusAreaID:              focusArea.ID,
			Title:                    fmt.Sprintf("%s - %s", reportName, subject),
			Description:              fmt.Sprintf("SoDA report: %s", reportName),
			Severity:                 severity,
			ClassificationConfidence: confidence,
			DetectedAt:               report.CreatedAt,
		}
		if issueType != nil {
			finding.IssueTypeID = &issueType.ID
		}

		if err := a.processFinding(ctx, finding, issueType, focusArea,
			fmt.Sprintf("Risk from %s", reportName)); err != nil {
			return nil, err
		}

		findings = append(findings, finding)
	}

	return findings, nil
}

// processFinding persists a finding and synchronously attaches its risk
// assessment and money loss calculation. Persistence failures are fatal to
// the run; a money loss computation failure only downgrades that row to a
// failed placeholder.
func (a *Analyzer) processFinding(ctx context.Context, finding *models.Finding, issueType *models.IssueType, focusArea *models.FocusArea, riskDescription string) error {
	if err := a.findings.CreateFinding(ctx, finding); err != nil {
		return err
	}

	risk := a.riskScorer.Calculate(finding, issueType)
	assessment := &models.RiskAssessment{
		FindingID:       finding.ID,
		RiskScore:       risk.Score,
		RiskLevel:       risk.Level,
		RiskCategory:    risk.Category,
		BaseScore:       risk.BaseScore,
		Multiplier:      risk.Multiplier,
		RiskDescription: riskDescription,
		AffectedUsers:   1,
	}
	if err := a.findings.CreateRiskAssessment(ctx, assessment); err != nil {
		return err
	}
	finding.RiskAssessment = assessment

	calc := a.calculateMoneyLoss(ctx, finding, issueType, focusArea)
	if err := a.findings.CreateMoneyLoss(ctx, calc); err != nil {
		return err
	}
	finding.MoneyLossCalculation = calc

	return nil
}

// calculateMoneyLoss invokes the hybrid engine for one finding. The engine
// itself degrades gracefully; this boundary additionally absorbs panics
// from a corrupt model or estimator so a single bad row cannot abort the
// run.
func (a *Analyzer) calculateMoneyLoss(ctx context.Context, finding *models.Finding, issueType *models.IssueType, focusArea *models.FocusArea) (calc *models.MoneyLossCalculation) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("money loss calculation panicked",
				zap.String("finding_id", finding.ID.String()),
				zap.Any("panic", r))
			calc = &models.MoneyLossCalculation{
				FindingID:         finding.ID,
				EstimatedLoss:     0,
				Confidence:        0,
				CalculationMethod: models.CalculationMethodFailed,
				Reasoning:         truncate(fmt.Sprintf("money loss calculation failed: %v", r), errorMessageMaxLen),
			}
		}
	}()

	result := a.lossEngine.Calculate(ctx, finding, issueType, focusArea, nil, a.useLLM, a.useML)

	return &models.MoneyLossCalculation{
		FindingID:         finding.ID,
		EstimatedLoss:     result.EstimatedLoss,
		Confidence:        result.Confidence,
		CalculationMethod: result.CalculationMethod,
		LLMEstimate:       result.LLMEstimate,
		MLEstimate:        result.MLEstimate,
		Reasoning:         result.Reasoning,
		FactorsConsidered: result.FactorsConsidered,
		Breakdown:         result.Breakdown,
	}
}

// groupFindings aggregates findings by issue type into IssueGroup rows.
// Findings without an issue type are counted in run totals but not
// grouped. Recomputation replaces any prior groups for the run.
func (a *Analyzer) groupFindings(ctx context.Context, run *models.AnalysisRun, findings []*models.Finding) error {
	type bucket struct {
		issueType *models.IssueType
		group     *models.IssueGroup
	}

	buckets := make(map[uuid.UUID]*bucket)
	var order []uuid.UUID

	for _, f := range findings {
		if f.IssueTypeID == nil {
			continue
		}
		b, ok := buckets[*f.IssueTypeID]
		if !ok {
			issueType, found := a.snapshot.IssueTypeByID(*f.IssueTypeID)
			if !found {
				return fmt.Errorf("finding %s references unknown issue type %s", f.ID, *f.IssueTypeID)
			}
			b = &bucket{
				issueType: issueType,
				group:     &models.IssueGroup{AnalysisRunID: run.ID, IssueTypeID: *f.IssueTypeID},
			}
			buckets[*f.IssueTypeID] = b
			order = append(order, *f.IssueTypeID)
		}

		b.group.FindingCount++
		if f.RiskAssessment != nil {
			b.group.TotalRiskScore += f.RiskAssessment.RiskScore
		}
		if f.MoneyLossCalculation != nil {
			b.group.TotalMoneyLoss += f.MoneyLossCalculation.EstimatedLoss
		}
	}

	groups := make([]*models.IssueGroup, 0, len(order))
	for _, id := range order {
		b := buckets[id]
		b.group.Summary = fmt.Sprintf("%d findings of type %s", b.group.FindingCount, b.issueType.Name)
		groups = append(groups, b.group)
	}

	if err := a.findings.ReplaceIssueGroups(ctx, run.ID, groups); err != nil {
		return fmt.Errorf("persist issue groups: %w", err)
	}

	return nil
}

// aggregate computes the run-level totals from the completed findings.
// Sums and counts only, so processing order cannot change the result.
func (a *Analyzer) aggregate(run *models.AnalysisRun, findings []*models.Finding) {
	run.TotalFindings = len(findings)
	run.FindingsByFocusArea = make(map[string]int)
	run.FindingsByIssueType = make(map[string]int)

	for _, f := range findings {
		if fa, ok := a.snapshot.FocusAreaByID(f.FocusAreaID); ok {
			run.FindingsByFocusArea[fa.Code]++
		}
		if f.IssueTypeID != nil {
			if it, ok := a.snapshot.IssueTypeByID(*f.IssueTypeID); ok {
				run.FindingsByIssueType[it.Code]++
			}
		}
		if f.RiskAssessment != nil {
			run.TotalRiskScore += f.RiskAssessment.RiskScore
		}
		if f.MoneyLossCalculation != nil {
			run.TotalMoneyLoss += f.MoneyLossCalculation.EstimatedLoss
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back up so the cut never splits a multibyte rune.
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

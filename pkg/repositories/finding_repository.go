package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/auditlens/auditlens-engine/pkg/apperrors"
	"github.com/auditlens/auditlens-engine/pkg/database"
	"github.com/auditlens/auditlens-engine/pkg/models"
)

// FindingFilter narrows ListFindings. Zero values mean no filtering on that
// dimension.
type FindingFilter struct {
	DataSourceID uuid.UUID
	FocusAreaID  uuid.UUID
	IssueTypeID  uuid.UUID
	Severity     string
	Status       string
	Limit        int
	Offset       int
}

// FindingRepository defines data access for findings and their 1:1 risk
// assessment and money loss rows.
type FindingRepository interface {
	// CreateFinding inserts a finding and assigns its ID. The embedded
	// RiskAssessment and MoneyLossCalculation are not persisted here.
	CreateFinding(ctx context.Context, f *models.Finding) error

	// CreateRiskAssessment inserts the risk scoring result for a finding.
	CreateRiskAssessment(ctx context.Context, ra *models.RiskAssessment) error

	// CreateMoneyLoss inserts the money loss estimate for a finding.
	CreateMoneyLoss(ctx context.Context, ml *models.MoneyLossCalculation) error

	// GetFinding retrieves one finding with its risk assessment and money
	// loss calculation attached when present.
	GetFinding(ctx context.Context, id uuid.UUID) (*models.Finding, error)

	// ListFindings retrieves findings matching the filter, newest first,
	// with risk and money loss rows attached.
	ListFindings(ctx context.Context, filter FindingFilter) ([]*models.Finding, error)

	// ReplaceIssueGroups atomically deletes any existing issue groups for a
	// run and inserts the given set.
	ReplaceIssueGroups(ctx context.Context, runID uuid.UUID, groups []*models.IssueGroup) error

	// ListIssueGroups retrieves the issue groups for a run.
	ListIssueGroups(ctx context.Context, runID uuid.UUID) ([]*models.IssueGroup, error)
}

type findingRepository struct {
	db *database.DB
}

// NewFindingRepository creates a new finding repository.
func NewFindingRepository(db *database.DB) FindingRepository {
	return &findingRepository{db: db}
}

func (r *findingRepository) CreateFinding(ctx context.Context, f *models.Finding) error {
	now := time.Now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = f.CreatedAt
	if f.DetectedAt.IsZero() {
		f.DetectedAt = now
	}
	if f.Status == "" {
		f.Status = models.FindingStatusNew
	}

	query := `
		INSERT INTO findings (data_source_id, alert_id, soda_report_id, focus_area_id, issue_type_id, title, description, severity, status, classification_confidence, detected_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12, $13)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		f.DataSourceID,
		f.AlertID,
		f.SoDAReportID,
		f.FocusAreaID,
		f.IssueTypeID,
		f.Title,
		f.Description,
		f.Severity,
		f.Status,
		f.ClassificationConfidence,
		f.DetectedAt,
		f.CreatedAt,
		f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("failed to create finding: %w", err)
	}

	return nil
}

func (r *findingRepository) CreateRiskAssessment(ctx context.Context, ra *models.RiskAssessment) error {
	if ra.CreatedAt.IsZero() {
		ra.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO risk_assessments (finding_id, risk_score, risk_level, risk_category, base_score, multiplier, risk_description, affected_users, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		ra.FindingID,
		ra.RiskScore,
		ra.RiskLevel,
		ra.RiskCategory,
		ra.BaseScore,
		ra.Multiplier,
		ra.RiskDescription,
		ra.AffectedUsers,
		ra.CreatedAt,
	).Scan(&ra.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create risk assessment: %w", err)
	}

	return nil
}

func (r *findingRepository) CreateMoneyLoss(ctx context.Context, ml *models.MoneyLossCalculation) error {
	if ml.CalculatedAt.IsZero() {
		ml.CalculatedAt = time.Now()
	}

	query := `
		INSERT INTO money_loss_calculations (finding_id, estimated_loss, confidence, calculation_method, llm_estimate, ml_estimate, reasoning, factors_considered, breakdown, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		ml.FindingID,
		ml.EstimatedLoss,
		ml.Confidence,
		ml.CalculationMethod,
		ml.LLMEstimate,
		ml.MLEstimate,
		ml.Reasoning,
		ml.FactorsConsidered,
		ml.Breakdown,
		ml.CalculatedAt,
	).Scan(&ml.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create money loss calculation: %w", err)
	}

	return nil
}

const findingSelect = `
	SELECT f.id, f.data_source_id, f.alert_id, f.soda_report_id, f.focus_area_id, f.issue_type_id,
	       f.title, COALESCE(f.description, ''), f.severity, f.status, f.classification_confidence,
	       f.detected_at, f.created_at, f.updated_at,
	       ra.id, ra.risk_score, ra.risk_level, ra.risk_category, ra.base_score, ra.multiplier,
	       COALESCE(ra.risk_description, ''), COALESCE(ra.affected_users, 0), ra.created_at,
	       ml.id, ml.estimated_loss, ml.confidence, ml.calculation_method, ml.llm_estimate,
	       ml.ml_estimate, COALESCE(ml.reasoning, ''), ml.factors_considered, ml.breakdown, ml.calculated_at
	FROM findings f
	LEFT JOIN risk_assessments ra ON ra.finding_id = f.id
	LEFT JOIN money_loss_calculations ml ON ml.finding_id = f.id`

func scanFinding(row pgx.Row) (*models.Finding, error) {
	var f models.Finding
	var raID *uuid.UUID
	var raScore, raBase, raAffected *int
	var raLevel, raCategory, raDescription *string
	var raMultiplier *float64
	var raCreatedAt *time.Time
	var mlID *uuid.UUID
	var mlLoss, mlConfidence *float64
	var mlMethod, mlReasoning *string
	var mlLLM, mlML *float64
	var mlFactors []string
	var mlBreakdown map[string]float64
	var mlCalculatedAt *time.Time

	err := row.Scan(
		&f.ID, &f.DataSourceID, &f.AlertID, &f.SoDAReportID, &f.FocusAreaID, &f.IssueTypeID,
		&f.Title, &f.Description, &f.Severity, &f.Status, &f.ClassificationConfidence,
		&f.DetectedAt, &f.CreatedAt, &f.UpdatedAt,
		&raID, &raScore, &raLevel, &raCategory, &raBase, &raMultiplier,
		&raDescription, &raAffected, &raCreatedAt,
		&mlID, &mlLoss, &mlConfidence, &mlMethod, &mlLLM,
		&mlML, &mlReasoning, &mlFactors, &mlBreakdown, &mlCalculatedAt,
	)
	if err != nil {
		return nil, err
	}

	if raID != nil {
		f.RiskAssessment = &models.RiskAssessment{
			ID:              *raID,
			FindingID:       f.ID,
			RiskScore:       *raScore,
			RiskLevel:       *raLevel,
			RiskCategory:    *raCategory,
			BaseScore:       *raBase,
			Multiplier:      *raMultiplier,
			RiskDescription: *raDescription,
			AffectedUsers:   *raAffected,
			CreatedAt:       *raCreatedAt,
		}
	}
	if mlID != nil {
		f.MoneyLossCalculation = &models.MoneyLossCalculation{
			ID:                *mlID,
			FindingID:         f.ID,
			EstimatedLoss:     *mlLoss,
			Confidence:        *mlConfidence,
			CalculationMethod: *mlMethod,
			LLMEstimate:       mlLLM,
			MLEstimate:        mlML,
			Reasoning:         *mlReasoning,
			FactorsConsidered: mlFactors,
			Breakdown:         mlBreakdown,
			CalculatedAt:      *mlCalculatedAt,
		}
	}

	return &f, nil
}

func (r *findingRepository) GetFinding(ctx context.Context, id uuid.UUID) (*models.Finding, error) {
	query := findingSelect + ` WHERE f.id = $1`

	f, err := scanFinding(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get finding: %w", err)
	}

	return f, nil
}

func (r *findingRepository) ListFindings(ctx context.Context, filter FindingFilter) ([]*models.Finding, error) {
	query := findingSelect + ` WHERE 1=1`
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.DataSourceID != uuid.Nil {
		query += ` AND f.data_source_id = ` + arg(filter.DataSourceID)
	}
	if filter.FocusAreaID != uuid.Nil {
		query += ` AND f.focus_area_id = ` + arg(filter.FocusAreaID)
	}
	if filter.IssueTypeID != uuid.Nil {
		query += ` AND f.issue_type_id = ` + arg(filter.IssueTypeID)
	}
	if filter.Severity != "" {
		query += ` AND f.severity = ` + arg(filter.Severity)
	}
	if filter.Status != "" {
		query += ` AND f.status = ` + arg(filter.Status)
	}

	query += ` ORDER BY f.created_at DESC, f.id`

	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	defer rows.Close()

	var findings []*models.Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating findings: %w", err)
	}

	return findings, nil
}

func (r *findingRepository) ReplaceIssueGroups(ctx context.Context, runID uuid.UUID, groups []*models.IssueGroup) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	if _, err := tx.Exec(ctx, `DELETE FROM issue_groups WHERE analysis_run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to clear issue groups: %w", err)
	}

	query := `
		INSERT INTO issue_groups (analysis_run_id, issue_type_id, finding_count, total_risk_score, total_money_loss, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		RETURNING id`

	now := time.Now()
	for _, g := range groups {
		if g.CreatedAt.IsZero() {
			g.CreatedAt = now
		}
		err := tx.QueryRow(ctx, query,
			runID,
			g.IssueTypeID,
			g.FindingCount,
			g.TotalRiskScore,
			g.TotalMoneyLoss,
			g.Summary,
			g.CreatedAt,
		).Scan(&g.ID)
		if err != nil {
			return fmt.Errorf("failed to create issue group: %w", err)
		}
		g.AnalysisRunID = runID
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *findingRepository) ListIssueGroups(ctx context.Context, runID uuid.UUID) ([]*models.IssueGroup, error) {
	query := `
		SELECT id, analysis_run_id, issue_type_id, finding_count, total_risk_score, total_money_loss, COALESCE(summary, ''), created_at
		FROM issue_groups
		WHERE analysis_run_id = $1
		ORDER BY total_risk_score DESC, created_at`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issue groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.IssueGroup
	for rows.Next() {
		var g models.IssueGroup
		err := rows.Scan(&g.ID, &g.AnalysisRunID, &g.IssueTypeID, &g.FindingCount, &g.TotalRiskScore, &g.TotalMoneyLoss, &g.Summary, &g.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue group: %w", err)
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issue groups: %w", err)
	}

	return groups, nil
}

// Ensure findingRepository implements FindingRepository at compile time.
var _ FindingRepository = (*findingRepository)(nil)

package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/auditlens/auditlens-engine/pkg/apperrors"
	"github.com/auditlens/auditlens-engine/pkg/database"
	"github.com/auditlens/auditlens-engine/pkg/models"
)

// AnalysisRunRepository defines data access for analysis runs.
type AnalysisRunRepository interface {
	// Create inserts a new run in status running and assigns its ID.
	Create(ctx context.Context, run *models.AnalysisRun) error

	// Complete transitions a running run to completed and stores its
	// aggregates. The run must currently be running.
	Complete(ctx context.Context, run *models.AnalysisRun) error

	// Fail transitions a running run to failed with an error message.
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error

	// GetByID retrieves a run by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error)

	// List retrieves runs newest first, optionally filtered by data source.
	List(ctx context.Context, dataSourceID uuid.UUID, limit, offset int) ([]*models.AnalysisRun, error)
}

type analysisRunRepository struct {
	db *database.DB
}

// NewAnalysisRunRepository creates a new analysis run repository.
func NewAnalysisRunRepository(db *database.DB) AnalysisRunRepository {
	return &analysisRunRepository{db: db}
}

func (r *analysisRunRepository) Create(ctx context.Context, run *models.AnalysisRun) error {
	run.Status = models.RunStatusRunning
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `
		INSERT INTO analysis_runs (data_source_id, run_name, status, started_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		run.DataSourceID,
		run.RunName,
		run.Status,
		run.StartedAt,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to create analysis run: %w", err)
	}

	return nil
}

func (r *analysisRunRepository) Complete(ctx context.Context, run *models.AnalysisRun) error {
	now := time.Now()

	query := `
		UPDATE analysis_runs
		SET status = $2, completed_at = $3, total_findings = $4, findings_by_focus_area = $5,
		    findings_by_issue_type = $6, total_risk_score = $7, total_money_loss = $8
		WHERE id = $1 AND status = $9`

	result, err := r.db.Exec(ctx, query,
		run.ID,
		models.RunStatusCompleted,
		now,
		run.TotalFindings,
		run.FindingsByFocusArea,
		run.FindingsByIssueType,
		run.TotalRiskScore,
		run.TotalMoneyLoss,
		models.RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to complete analysis run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	run.Status = models.RunStatusCompleted
	run.CompletedAt = &now

	return nil
}

func (r *analysisRunRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE analysis_runs
		SET status = $2, completed_at = $3, error_message = $4
		WHERE id = $1 AND status = $5`

	result, err := r.db.Exec(ctx, query, id, models.RunStatusFailed, time.Now(), errorMessage, models.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to mark analysis run failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

const runSelect = `
	SELECT id, data_source_id, run_name, status, started_at, completed_at,
	       total_findings, findings_by_focus_area, findings_by_issue_type,
	       total_risk_score, total_money_loss, COALESCE(error_message, '')
	FROM analysis_runs`

func scanRun(row pgx.Row) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	err := row.Scan(
		&run.ID,
		&run.DataSourceID,
		&run.RunName,
		&run.Status,
		&run.StartedAt,
		&run.CompletedAt,
		&run.TotalFindings,
		&run.FindingsByFocusArea,
		&run.FindingsByIssueType,
		&run.TotalRiskScore,
		&run.TotalMoneyLoss,
		&run.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *analysisRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error) {
	run, err := scanRun(r.db.QueryRow(ctx, runSelect+` WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis run: %w", err)
	}

	return run, nil
}

func (r *analysisRunRepository) List(ctx context.Context, dataSourceID uuid.UUID, limit, offset int) ([]*models.AnalysisRun, error) {
	query := runSelect
	var args []any

	if dataSourceID != uuid.Nil {
		args = append(args, dataSourceID)
		query += fmt.Sprintf(` WHERE data_source_id = $%d`, len(args))
	}

	query += ` ORDER BY started_at DESC, id`

	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis runs: %w", err)
	}

	return runs, nil
}

// Ensure analysisRunRepository implements AnalysisRunRepository at compile time.
var _ AnalysisRunRepository = (*analysisRunRepository)(nil)

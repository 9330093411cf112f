package repositories

import (
	"context"
	"fmt"

	"github.com/auditlens/auditlens-engine/pkg/database"
)

// DashboardSummary is the aggregate view served by the dashboard endpoint.
type DashboardSummary struct {
	TotalDataSources    int            `json:"total_data_sources"`
	TotalAnalysisRuns   int            `json:"total_analysis_runs"`
	TotalFindings       int            `json:"total_findings"`
	TotalEstimatedLoss  float64        `json:"total_estimated_loss"`
	AverageRiskScore    float64        `json:"average_risk_score"`
	FindingsBySeverity  map[string]int `json:"findings_by_severity"`
	FindingsByFocusArea map[string]int `json:"findings_by_focus_area"`
}

// DashboardRepository computes cross-entity aggregates for the dashboard.
type DashboardRepository interface {
	Summary(ctx context.Context) (*DashboardSummary, error)
}

type dashboardRepository struct {
	db *database.DB
}

// NewDashboardRepository creates a new dashboard repository.
func NewDashboardRepository(db *database.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) Summary(ctx context.Context) (*DashboardSummary, error) {
	s := &DashboardSummary{
		FindingsBySeverity:  make(map[string]int),
		FindingsByFocusArea: make(map[string]int),
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM data_sources),
			(SELECT COUNT(*) FROM analysis_runs),
			(SELECT COUNT(*) FROM findings),
			(SELECT COALESCE(SUM(estimated_loss), 0) FROM money_loss_calculations),
			(SELECT COALESCE(AVG(risk_score), 0) FROM risk_assessments)`

	err := r.db.QueryRow(ctx, query).Scan(
		&s.TotalDataSources,
		&s.TotalAnalysisRuns,
		&s.TotalFindings,
		&s.TotalEstimatedLoss,
		&s.AverageRiskScore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard totals: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT severity, COUNT(*) FROM findings GROUP BY severity`)
	if err != nil {
		return nil, fmt.Errorf("failed to count findings by severity: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan severity count: %w", err)
		}
		s.FindingsBySeverity[severity] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating severity counts: %w", err)
	}

	areaRows, err := r.db.Query(ctx, `
		SELECT fa.code, COUNT(*)
		FROM findings f
		JOIN focus_areas fa ON fa.id = f.focus_area_id
		GROUP BY fa.code`)
	if err != nil {
		return nil, fmt.Errorf("failed to count findings by focus area: %w", err)
	}
	defer areaRows.Close()
	for areaRows.Next() {
		var code string
		var count int
		if err := areaRows.Scan(&code, &count); err != nil {
			return nil, fmt.Errorf("failed to scan focus area count: %w", err)
		}
		s.FindingsByFocusArea[code] = count
	}
	if err := areaRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating focus area counts: %w", err)
	}

	return s, nil
}

// Ensure dashboardRepository implements DashboardRepository at compile time.
var _ DashboardRepository = (*dashboardRepository)(nil)

package models

import (
	"time"

	"github.com/google/uuid"
)

// Analysis run statuses. Terminal states are final; a failed run is a
// completed record of failure, not resumable.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// AnalysisRun is one invocation of the pipeline against a data source,
// with aggregates computed from its findings at completion.
type AnalysisRun struct {
	ID           uuid.UUID `json:"id"`
	DataSourceID uuid.UUID `json:"data_source_id"`

	RunName     string     `json:"run_name"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	TotalFindings       int            `json:"total_findings"`
	FindingsByFocusArea map[string]int `json:"findings_by_focus_area,omitempty"`
	FindingsByIssueType map[string]int `json:"findings_by_issue_type,omitempty"`
	TotalRiskScore      int            `json:"total_risk_score"`
	TotalMoneyLoss      float64        `json:"total_money_loss"`

	ErrorMessage string `json:"error_message,omitempty"`
}

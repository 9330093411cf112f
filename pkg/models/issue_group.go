package models

import (
	"time"

	"github.com/google/uuid"
)

// IssueGroup is the per-(run, issue type) aggregate created once after all
// of a run's findings are processed. Never mutated after creation.
type IssueGroup struct {
	ID            uuid.UUID `json:"id"`
	AnalysisRunID uuid.UUID `json:"analysis_run_id"`
	IssueTypeID   uuid.UUID `json:"issue_type_id"`

	FindingCount   int     `json:"finding_count"`
	TotalRiskScore int     `json:"total_risk_score"`
	TotalMoneyLoss float64 `json:"total_money_loss"`
	Summary        string  `json:"summary,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

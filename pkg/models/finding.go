package models

import (
	"time"

	"github.com/google/uuid"
)

// Finding statuses.
const (
	FindingStatusNew           = "new"
	FindingStatusInProgress    = "in_progress"
	FindingStatusResolved      = "resolved"
	FindingStatusFalsePositive = "false_positive"
)

// Finding is the central output of an analysis run: one classified, scored
// observation derived from exactly one raw record (alert xor SoDA report).
type Finding struct {
	ID           uuid.UUID  `json:"id"`
	DataSourceID uuid.UUID  `json:"data_source_id"`
	AlertID      *uuid.UUID `json:"alert_id,omitempty"`
	SoDAReportID *uuid.UUID `json:"soda_report_id,omitempty"`
	FocusAreaID  uuid.UUID  `json:"focus_area_id"`
	IssueTypeID  *uuid.UUID `json:"issue_type_id,omitempty"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity"`
	Status      string `json:"status"`

	// ClassificationConfidence is in [0,1].
	ClassificationConfidence float64 `json:"classification_confidence"`

	DetectedAt time.Time `json:"detected_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Populated by the analyzer after the finding row is flushed.
	RiskAssessment       *RiskAssessment       `json:"risk_assessment,omitempty"`
	MoneyLossCalculation *MoneyLossCalculation `json:"money_loss_calculation,omitempty"`
}

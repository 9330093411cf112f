package models

import (
	"time"

	"github.com/google/uuid"
)

// RiskAssessment is the 1:1 risk scoring result for a finding. Created
// immediately after its finding and never mutated.
type RiskAssessment struct {
	ID        uuid.UUID `json:"id"`
	FindingID uuid.UUID `json:"finding_id"`

	RiskScore    int    `json:"risk_score"` // 0-100
	RiskLevel    string `json:"risk_level"` // Critical, High, Medium, Low
	RiskCategory string `json:"risk_category"`

	BaseScore       int     `json:"base_score"`
	Multiplier      float64 `json:"multiplier"` // confidence-adjusted multiplier actually applied
	RiskDescription string  `json:"risk_description,omitempty"`
	AffectedUsers   int     `json:"affected_users,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Money-loss calculation methods.
const (
	CalculationMethodLLM      = "llm"
	CalculationMethodML       = "ml"
	CalculationMethodHybrid   = "hybrid"
	CalculationMethodFallback = "fallback"
	CalculationMethodFailed   = "failed"
)

// MoneyLossCalculation is the 1:1 monetary loss estimate for a finding.
// Every finding gets exactly one row; estimator failures still produce a
// row with CalculationMethod "failed".
type MoneyLossCalculation struct {
	ID        uuid.UUID `json:"id"`
	FindingID uuid.UUID `json:"finding_id"`

	EstimatedLoss     float64 `json:"estimated_loss"` // currency units, >= 0
	Confidence        float64 `json:"confidence"`     // [0,1]
	CalculationMethod string  `json:"calculation_method"`

	LLMEstimate *float64 `json:"llm_estimate,omitempty"`
	MLEstimate  *float64 `json:"ml_estimate,omitempty"`

	Reasoning         string             `json:"reasoning,omitempty"`
	FactorsConsidered []string           `json:"factors_considered,omitempty"`
	Breakdown         map[string]float64 `json:"breakdown,omitempty"`

	CalculatedAt time.Time `json:"calculated_at"`
}

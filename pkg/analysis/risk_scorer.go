package analysis

import (
	"math"
	"strings"

	"github.com/auditlens/auditlens-engine/pkg/models"
)

// Base risk scores by severity. Unknown severities fall back to the
// Medium baseline.
var severityScores = map[string]int{
	models.SeverityCritical: 90,
	models.SeverityHigh:     70,
	models.SeverityMedium:   50,
	models.SeverityLow:      30,
}

const defaultBaseScore = 50

// Risk multipliers by issue type code. Fraud and access codes amplify the
// severity baseline; operational noise dampens it. Unlisted codes use 1.0.
var issueTypeMultipliers = map[string]float64{
	models.IssueTypeFraudDetection:          1.2,
	models.IssueTypeSoDViolation:            1.3,
	models.IssueTypeCybersecurityThreat:     1.4,
	models.IssueTypeUnauthorizedAccess:      1.3,
	models.IssueTypeMaterialConversionFraud: 1.5,
	models.IssueTypeVendorPaymentDiversion:  1.4,
	models.IssueTypeSelfApproval:            1.2,
	models.IssueTypeProcessBottleneck:       0.9,
	models.IssueTypeLongSession:             0.8,
}

// defaultConfidence damps the multiplier when a finding carries no
// classification confidence.
const defaultConfidence = 0.7

// RiskScore is the result of scoring one finding.
type RiskScore struct {
	Score      int
	Level      string
	Category   string
	BaseScore  int
	Multiplier float64 // confidence-adjusted multiplier actually applied
}

// RiskScorer maps (severity, issue type, classification confidence) to a
// bounded risk score. Pure and deterministic.
type RiskScorer struct{}

// NewRiskScorer creates a risk scorer.
func NewRiskScorer() *RiskScorer {
	return &RiskScorer{}
}

// Calculate scores a finding. The issue type multiplier is damped by the
// classification confidence so a weak classification cannot swing the
// score far from the severity baseline, then the result is clamped to
// [0,100]. Level thresholds are inclusive: >=80 Critical, >=60 High,
// >=40 Medium, else Low.
func (s *RiskScorer) Calculate(finding *models.Finding, issueType *models.IssueType) RiskScore {
	baseScore, ok := severityScores[finding.Severity]
	if !ok {
		baseScore = defaultBaseScore
	}

	multiplier := 1.0
	if issueType != nil {
		if m, ok := issueTypeMultipliers[issueType.Code]; ok {
			multiplier = m
		}
	}

	confidence := finding.ClassificationConfidence
	if confidence == 0 {
		confidence = defaultConfidence
	}
	adjusted := 1.0 + (multiplier-1.0)*confidence

	score := int(math.Round(float64(baseScore) * adjusted))
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	var level, category string
	fraudCode := issueType != nil && strings.Contains(issueType.Code, "FRAUD")
	switch {
	case score >= 80:
		level = models.SeverityCritical
		if fraudCode {
			category = models.RiskCategorySecurity
		} else {
			category = models.RiskCategoryCompliance
		}
	case score >= 60:
		level = models.SeverityHigh
		if fraudCode {
			category = models.RiskCategorySecurity
		} else {
			category = models.RiskCategoryOperational
		}
	case score >= 40:
		level = models.SeverityMedium
		category = models.RiskCategoryOperational
	default:
		level = models.SeverityLow
		category = models.RiskCategoryOperational
	}

	return RiskScore{
		Score:      score,
		Level:      level,
		Category:   category,
		BaseScore:  baseScore,
		Multiplier: adjusted,
	}
}

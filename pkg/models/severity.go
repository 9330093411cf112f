package models

// Severity levels shared by findings, issue types, and risk levels.
const (
	SeverityCritical = "Critical"
	SeverityHigh     = "High"
	SeverityMedium   = "Medium"
	SeverityLow      = "Low"
)

// ValidSeverity reports whether s is one of the four known severities.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Risk categories assigned by the risk scorer.
const (
	RiskCategorySecurity    = "Security"
	RiskCategoryCompliance  = "Compliance"
	RiskCategoryOperational = "Operational"
)

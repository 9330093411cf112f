package models

import (
	"time"

	"github.com/google/uuid"
)

// Focus area codes. These are static reference data seeded by migrations;
// the codes are stable identifiers used throughout classification.
const (
	FocusAreaBusinessProtection = "BUSINESS_PROTECTION"
	FocusAreaBusinessControl    = "BUSINESS_CONTROL"
	FocusAreaAccessGovernance   = "ACCESS_GOVERNANCE"
	FocusAreaTechnicalControl   = "TECHNICAL_CONTROL"
	FocusAreaJobsControl        = "JOBS_CONTROL"
	FocusAreaS4HANAExcellence   = "S4HANA_EXCELLENCE"
)

// FocusArea is one of the six business focus areas findings are classified into.
type FocusArea struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

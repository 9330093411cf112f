package refdata

import (
	"github.com/google/uuid"

	"github.com/auditlens/auditlens-engine/pkg/models"
)

type seedIssue struct {
	focusCode       string
	code            string
	name            string
	description     string
	defaultSeverity string
}

var seedFocusAreas = []struct {
	code        string
	name        string
	description string
}{
	{models.FocusAreaBusinessProtection, "Business Protection", "Fraud detection, cybersecurity protection and prevention"},
	{models.FocusAreaBusinessControl, "Business Control", "Business bottlenecks detection, process observability, business anomalies detection"},
	{models.FocusAreaAccessGovernance, "Access Governance", "Segregation of Duties governance, authorizations control, user access and risk reviews"},
	{models.FocusAreaTechnicalControl, "Technical Control", "Infrastructure observability, communications and interfaces, technical anomalies detection"},
	{models.FocusAreaJobsControl, "Jobs Control", "Jobs performance deep analysis, resource utilization analysis, anomalies tracking"},
	{models.FocusAreaS4HANAExcellence, "S/4HANA Excellence", "Post go-live protection, post migration safeguarding, business continuity"},
}

var seedIssueTypes = []seedIssue{
	{models.FocusAreaBusinessProtection, models.IssueTypeFraudDetection, "Fraud Detection", "Detected potential fraud indicators", models.SeverityCritical},
	{models.FocusAreaBusinessProtection, models.IssueTypeCybersecurityThreat, "Cybersecurity Threat", "Potential cybersecurity threats detected", models.SeverityCritical},
	{models.FocusAreaBusinessProtection, models.IssueTypeMaterialConversionFraud, "Material Conversion Fraud", "High-value materials converted to low-value items", models.SeverityCritical},
	{models.FocusAreaBusinessProtection, models.IssueTypeVendorPaymentDiversion, "Vendor Payment Diversion", "Bank account changes followed by quick reversals", models.SeverityCritical},
	{models.FocusAreaBusinessControl, models.IssueTypeProcessBottleneck, "Process Bottleneck", "Business process bottlenecks causing delays", models.SeverityHigh},
	{models.FocusAreaBusinessControl, models.IssueTypeUnbilledDelivery, "Unbilled Delivery", "Goods shipped but not invoiced", models.SeverityHigh},
	{models.FocusAreaBusinessControl, models.IssueTypeDataExchangeFailure, "Data Exchange Failure", "Critical business data transmission breakdowns", models.SeverityHigh},
	{models.FocusAreaAccessGovernance, models.IssueTypeSoDViolation, "Segregation of Duties Violation", "User has conflicting permissions enabling fraud", models.SeverityCritical},
	{models.FocusAreaAccessGovernance, models.IssueTypeUnauthorizedAccess, "Unauthorized Access", "User accessing systems without proper authorization", models.SeverityCritical},
	{models.FocusAreaAccessGovernance, models.IssueTypeLongSession, "Long Session Duration", "User logged in for extended period (24+ hours)", models.SeverityMedium},
	{models.FocusAreaAccessGovernance, models.IssueTypeSelfApproval, "Self-Approval Violation", "User approving their own transactions", models.SeverityHigh},
	{models.FocusAreaTechnicalControl, models.IssueTypeSystemDump, "System Dump", "ABAP runtime errors indicating system issues", models.SeverityHigh},
	{models.FocusAreaTechnicalControl, models.IssueTypeLockConflict, "Application Lock Conflict", "Prolonged locks causing performance bottlenecks", models.SeverityMedium},
	{models.FocusAreaTechnicalControl, models.IssueTypeResourceExhaustion, "Resource Exhaustion", "Low CPU, memory, or disk space", models.SeverityHigh},
	{models.FocusAreaJobsControl, models.IssueTypeLongRunningJob, "Long-Running Background Job", "Job running abnormally long (24+ hours)", models.SeverityMedium},
	{models.FocusAreaJobsControl, models.IssueTypeJobFailure, "Job Processing Failure", "Failed batch processes affecting operations", models.SeverityHigh},
	{models.FocusAreaS4HANAExcellence, models.IssueTypeMigrationIssue, "Post-Migration Issue", "Issues detected after S/4HANA migration", models.SeverityHigh},
	{models.FocusAreaS4HANAExcellence, models.IssueTypeFioriAdoption, "Fiori Interface Adoption", "User adaptation tracking for new interface", models.SeverityLow},
}

// Defaults returns a snapshot of the seeded reference catalog with freshly
// generated IDs. It mirrors migrations/002_reference_data and is intended
// for tests and tooling that run without a database.
func Defaults() *Snapshot {
	areas := make([]*models.FocusArea, 0, len(seedFocusAreas))
	areaIDs := make(map[string]uuid.UUID, len(seedFocusAreas))
	for _, seed := range seedFocusAreas {
		id := uuid.New()
		areaIDs[seed.code] = id
		areas = append(areas, &models.FocusArea{
			ID:          id,
			Code:        seed.code,
			Name:        seed.name,
			Description: seed.description,
		})
	}

	issues := make([]*models.IssueType, 0, len(seedIssueTypes))
	for _, seed := range seedIssueTypes {
		issues = append(issues, &models.IssueType{
			ID:              uuid.New(),
			FocusAreaID:     areaIDs[seed.focusCode],
			Code:            seed.code,
			Name:            seed.name,
			Description:     seed.description,
			DefaultSeverity: seed.defaultSeverity,
		})
	}

	s, err := NewSnapshot(areas, issues)
	if err != nil {
		// The seed catalog is static; a constructor error here is a bug.
		panic(err)
	}
	return s
}

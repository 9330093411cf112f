package models

import (
	"time"

	"github.com/google/uuid"
)

// Issue type codes referenced by the classifiers and risk scorer.
const (
	IssueTypeFraudDetection          = "FRAUD_DETECTION"
	IssueTypeCybersecurityThreat     = "CYBERSECURITY_THREAT"
	IssueTypeMaterialConversionFraud = "MATERIAL_CONVERSION_FRAUD"
	IssueTypeVendorPaymentDiversion  = "VENDOR_PAYMENT_DIVERSION"
	IssueTypeProcessBottleneck       = "PROCESS_BOTTLENECK"
	IssueTypeUnbilledDelivery        = "UNBILLED_DELIVERY"
	IssueTypeDataExchangeFailure     = "DATA_EXCHANGE_FAILURE"
	IssueTypeSoDViolation            = "SOD_VIOLATION"
	IssueTypeUnauthorizedAccess      = "UNAUTHORIZED_ACCESS"
	IssueTypeLongSession             = "LONG_SESSION"
	IssueTypeSelfApproval            = "SELF_APPROVAL"
	IssueTypeSystemDump              = "SYSTEM_DUMP"
	IssueTypeLockConflict            = "LOCK_CONFLICT"
	IssueTypeResourceExhaustion      = "RESOURCE_EXHAUSTION"
	IssueTypeLongRunningJob          = "LONG_RUNNING_JOB"
	IssueTypeJobFailure              = "JOB_FAILURE"
	IssueTypeMigrationIssue          = "MIGRATION_ISSUE"
	IssueTypeFioriAdoption           = "FIORI_ADOPTION"
)

// IssueType is a specific issue category within a focus area.
// Static reference data; DefaultSeverity feeds finding severity when the
// raw record carries none.
type IssueType struct {
	ID              uuid.UUID `json:"id"`
	FocusAreaID     uuid.UUID `json:"focus_area_id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DefaultSeverity string    `json:"default_severity"`
	CreatedAt       time.Time `json:"created_at"`
}

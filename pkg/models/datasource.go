package models

import (
	"time"

	"github.com/google/uuid"
)

// Data source types: a source file holds either 4C alert rows or SoDA report rows.
const (
	DataTypeAlert  = "alert"
	DataTypeReport = "report"
)

// Data source ingestion statuses.
const (
	DataSourceStatusPending    = "pending"
	DataSourceStatusProcessing = "processing"
	DataSourceStatusCompleted  = "completed"
	DataSourceStatusError      = "error"
)

// ValidDataType reports whether t is a known data source type.
func ValidDataType(t string) bool {
	return t == DataTypeAlert || t == DataTypeReport
}

// DataSource represents one ingested export file. The analysis core reads
// data sources but never mutates them; status transitions belong to the
// ingestion layer.
type DataSource struct {
	ID               uuid.UUID `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FileFormat       string    `json:"file_format"` // xlsx, csv, pdf, docx, json
	DataType         string    `json:"data_type"`   // alert | report
	FileSize         int64     `json:"file_size"`
	AlertID          string    `json:"alert_id,omitempty"`    // 4C alerts: SLG_XXXXXX_XXXXXX
	ReportType       string    `json:"report_type,omitempty"` // SoDA reports: AVR, PVR, etc.
	Status           string    `json:"status"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	UploadedBy       string    `json:"uploaded_by,omitempty"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertMetadata describes the alert definition a 4C export was generated
// from. One per data source.
type AlertMetadata struct {
	ID           uuid.UUID      `json:"id"`
	DataSourceID uuid.UUID      `json:"data_source_id"`
	AlertName    string         `json:"alert_name"`
	AlertID      string         `json:"alert_id,omitempty"` // SLG_XXXXXX_XXXXXX
	Parameters   map[string]any `json:"parameters,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Alert is one normalized alert row from a 4C export. Immutable once
// created. Extra preserves every original column the parser did not map to
// a normalized field, so no source data is lost.
type Alert struct {
	ID                uuid.UUID      `json:"id"`
	DataSourceID      uuid.UUID      `json:"data_source_id"`
	ApplicationServer string         `json:"application_server,omitempty"`
	UserName          string         `json:"user_name,omitempty"`
	FullName          string         `json:"full_name,omitempty"`
	Client            string         `json:"client,omitempty"`
	Terminal          string         `json:"terminal,omitempty"`
	TransactionCode   string         `json:"transaction_code,omitempty"`
	Timestamp         *time.Time     `json:"timestamp,omitempty"`
	Duration          int            `json:"duration,omitempty"`
	DurationUnit      string         `json:"duration_unit,omitempty"` // M, H, D
	IPAddress         string         `json:"ip_address,omitempty"`
	MemoryConsumption int            `json:"memory_consumption,omitempty"` // MB
	Extra             map[string]any `json:"extra,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// SoDAReportMetadata describes a segregation-of-duties report export. One
// per data source.
type SoDAReportMetadata struct {
	ID           uuid.UUID      `json:"id"`
	DataSourceID uuid.UUID      `json:"data_source_id"`
	ReportType   string         `json:"report_type"` // AVR, PVR, ARP, CRV, IVR, ...
	ReportName   string         `json:"report_name,omitempty"`
	ReportDate   *time.Time     `json:"report_date,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	KPIs         map[string]any `json:"kpis,omitempty"`
	ResultCount  int            `json:"result_count"`
	CreatedAt    time.Time      `json:"created_at"`
}

// SoDAReport is one normalized SoDA report row. Immutable once created;
// Extra carries the lossless passthrough of unmapped source columns.
type SoDAReport struct {
	ID           uuid.UUID      `json:"id"`
	DataSourceID uuid.UUID      `json:"data_source_id"`
	UserName     string         `json:"user_name,omitempty"`
	RoleName     string         `json:"role_name,omitempty"`
	RiskID       string         `json:"risk_id,omitempty"`
	RiskLevel    string         `json:"risk_level,omitempty"` // Critical, High, Medium, Low
	Description  string         `json:"description,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

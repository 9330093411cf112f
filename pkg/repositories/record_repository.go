package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/auditlens/auditlens-engine/pkg/apperrors"
	"github.com/auditlens/auditlens-engine/pkg/database"
	"github.com/auditlens/auditlens-engine/pkg/models"
)

// insertChunkSize bounds how many rows go into one pgx batch so a large
// export does not pin a connection for the whole file.
const insertChunkSize = 500

// RecordRepository defines data access for normalized alert and SoDA report
// rows plus their per-file metadata.
type RecordRepository interface {
	CreateAlertMetadata(ctx context.Context, meta *models.AlertMetadata) error
	CreateReportMetadata(ctx context.Context, meta *models.SoDAReportMetadata) error

	// InsertAlerts bulk-inserts alert rows and assigns their IDs.
	InsertAlerts(ctx context.Context, alerts []*models.Alert) error

	// InsertReports bulk-inserts SoDA report rows and assigns their IDs.
	InsertReports(ctx context.Context, reports []*models.SoDAReport) error

	ListAlertsByDataSource(ctx context.Context, dataSourceID uuid.UUID) ([]*models.Alert, error)
	ListReportsByDataSource(ctx context.Context, dataSourceID uuid.UUID) ([]*models.SoDAReport, error)

	GetAlertMetadata(ctx context.Context, dataSourceID uuid.UUID) (*models.AlertMetadata, error)
	GetReportMetadata(ctx context.Context, dataSourceID uuid.UUID) (*models.SoDAReportMetadata, error)
}

type recordRepository struct {
	db *database.DB
}

// NewRecordRepository creates a new record repository.
func NewRecordRepository(db *database.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) CreateAlertMetadata(ctx context.Context, meta *models.AlertMetadata) error {
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO alert_metadata (data_source_id, alert_name, alert_id, parameters, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		meta.DataSourceID,
		meta.AlertName,
		meta.AlertID,
		meta.Parameters,
		meta.CreatedAt,
	).Scan(&meta.ID)
	if err != nil {
		return fmt.Errorf("failed to create alert metadata: %w", err)
	}

	return nil
}

func (r *recordRepository) CreateReportMetadata(ctx context.Context, meta *models.SoDAReportMetadata) error {
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO soda_report_metadata (data_source_id, report_type, report_name, report_date, parameters, kpis, result_count, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		meta.DataSourceID,
		meta.ReportType,
		meta.ReportName,
		meta.ReportDate,
		meta.Parameters,
		meta.KPIs,
		meta.ResultCount,
		meta.CreatedAt,
	).Scan(&meta.ID)
	if err != nil {
		return fmt.Errorf("failed to create report metadata: %w", err)
	}

	return nil
}

func (r *recordRepository) InsertAlerts(ctx context.Context, alerts []*models.Alert) error {
	insertQuery := `
		INSERT INTO alerts (data_source_id, application_server, user_name, full_name, client, terminal, transaction_code, occurred_at, duration, duration_unit, ip_address, memory_consumption, extra, created_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, $13, $14)
		RETURNING id`

	now := time.Now()
	for start := 0; start < len(alerts); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(alerts) {
			end = len(alerts)
		}
		chunk := alerts[start:end]

		batch := &pgx.Batch{}
		for _, a := range chunk {
			if a.CreatedAt.IsZero() {
				a.CreatedAt = now
			}
			batch.Queue(insertQuery,
				a.DataSourceID,
				a.ApplicationServer,
				a.UserName,
				a.FullName,
				a.Client,
				a.Terminal,
				a.TransactionCode,
				a.Timestamp,
				a.Duration,
				a.DurationUnit,
				a.IPAddress,
				a.MemoryConsumption,
				a.Extra,
				a.CreatedAt,
			)
		}

		results := r.db.SendBatch(ctx, batch)
		for _, a := range chunk {
			if err := results.QueryRow().Scan(&a.ID); err != nil {
				results.Close() //nolint:errcheck
				return fmt.Errorf("failed to insert alert: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close alert batch: %w", err)
		}
	}

	return nil
}

func (r *recordRepository) InsertReports(ctx context.Context, reports []*models.SoDAReport) error {
	insertQuery := `
		INSERT INTO soda_reports (data_source_id, user_name, role_name, risk_id, risk_level, description, extra, created_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8)
		RETURNING id`

	now := time.Now()
	for start := 0; start < len(reports); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(reports) {
			end = len(reports)
		}
		chunk := reports[start:end]

		batch := &pgx.Batch{}
		for _, rep := range chunk {
			if rep.CreatedAt.IsZero() {
				rep.CreatedAt = now
			}
			batch.Queue(insertQuery,
				rep.DataSourceID,
				rep.UserName,
				rep.RoleName,
				rep.RiskID,
				rep.RiskLevel,
				rep.Description,
				rep.Extra,
				rep.CreatedAt,
			)
		}

		results := r.db.SendBatch(ctx, batch)
		for _, rep := range chunk {
			if err := results.QueryRow().Scan(&rep.ID); err != nil {
				results.Close() //nolint:errcheck
				return fmt.Errorf("failed to insert soda report: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close report batch: %w", err)
		}
	}

	return nil
}

func (r *recordRepository) ListAlertsByDataSource(ctx context.Context, dataSourceID uuid.UUID) ([]*models.Alert, error) {
	query := `
		SELECT id, data_source_id, COALESCE(application_server, ''), COALESCE(user_name, ''),
		       COALESCE(full_name, ''), COALESCE(client, ''), COALESCE(terminal, ''),
		       COALESCE(transaction_code, ''), occurred_at, COALESCE(duration, 0),
		       COALESCE(duration_unit, ''), COALESCE(ip_address, ''), COALESCE(memory_consumption, 0),
		       extra, created_at
		FROM alerts
		WHERE data_source_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, dataSourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		var a models.Alert
		err := rows.Scan(
			&a.ID,
			&a.DataSourceID,
			&a.ApplicationServer,
			&a.UserName,
			&a.FullName,
			&a.Client,
			&a.Terminal,
			&a.TransactionCode,
			&a.Timestamp,
			&a.Duration,
			&a.DurationUnit,
			&a.IPAddress,
			&a.MemoryConsumption,
			&a.Extra,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

func (r *recordRepository) ListReportsByDataSource(ctx context.Context, dataSourceID uuid.UUID) ([]*models.SoDAReport, error) {
	query := `
		SELECT id, data_source_id, COALESCE(user_name, ''), COALESCE(role_name, ''),
		       COALESCE(risk_id, ''), COALESCE(risk_level, ''), COALESCE(description, ''),
		       extra, created_at
		FROM soda_reports
		WHERE data_source_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, dataSourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list soda reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.SoDAReport
	for rows.Next() {
		var rep models.SoDAReport
		err := rows.Scan(
			&rep.ID,
			&rep.DataSourceID,
			&rep.UserName,
			&rep.RoleName,
			&rep.RiskID,
			&rep.RiskLevel,
			&rep.Description,
			&rep.Extra,
			&rep.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan soda report: %w", err)
		}
		reports = append(reports, &rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating soda reports: %w", err)
	}

	return reports, nil
}

func (r *recordRepository) GetAlertMetadata(ctx context.Context, dataSourceID uuid.UUID) (*models.AlertMetadata, error) {
	query := `
		SELECT id, data_source_id, alert_name, COALESCE(alert_id, ''), parameters, created_at
		FROM alert_metadata
		WHERE data_source_id = $1`

	var meta models.AlertMetadata
	err := r.db.QueryRow(ctx, query, dataSourceID).Scan(
		&meta.ID,
		&meta.DataSourceID,
		&meta.AlertName,
		&meta.AlertID,
		&meta.Parameters,
		&meta.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get alert metadata: %w", err)
	}

	return &meta, nil
}

func (r *recordRepository) GetReportMetadata(ctx context.Context, dataSourceID uuid.UUID) (*models.SoDAReportMetadata, error) {
	query := `
		SELECT id, data_source_id, report_type, COALESCE(report_name, ''), report_date, parameters, kpis, result_count, created_at
		FROM soda_report_metadata
		WHERE data_source_id = $1`

	var meta models.SoDAReportMetadata
	err := r.db.QueryRow(ctx, query, dataSourceID).Scan(
		&meta.ID,
		&meta.DataSourceID,
		&meta.ReportType,
		&meta.ReportName,
		&meta.ReportDate,
		&meta.Parameters,
		&meta.KPIs,
		&meta.ResultCount,
		&meta.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report metadata: %w", err)
	}

	return &meta, nil
}

// Ensure recordRepository implements RecordRepository at compile time.
var _ RecordRepository = (*recordRepository)(nil)

package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/auditlens/auditlens-engine/pkg/apperrors"
	"github.com/auditlens/auditlens-engine/pkg/database"
	"github.com/auditlens/auditlens-engine/pkg/models"
)

// DataSourceRepository defines data access for ingested export files.
type DataSourceRepository interface {
	// Create inserts a new data source in status pending.
	Create(ctx context.Context, ds *models.DataSource) error

	// GetByID retrieves a data source by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, error)

	// List retrieves all data sources, newest first.
	List(ctx context.Context) ([]*models.DataSource, error)

	// UpdateStatus transitions a data source's ingestion status. The error
	// message is only stored for status error.
	UpdateStatus(ctx context.Context, id uuid.UUID, status, errorMessage string) error

	// Delete removes a data source and, via cascade, all derived rows.
	Delete(ctx context.Context, id uuid.UUID) error
}

type dataSourceRepository struct {
	db *database.DB
}

// NewDataSourceRepository creates a new data source repository.
func NewDataSourceRepository(db *database.DB) DataSourceRepository {
	return &dataSourceRepository{db: db}
}

func (r *dataSourceRepository) Create(ctx context.Context, ds *models.DataSource) error {
	if ds.Status == "" {
		ds.Status = models.DataSourceStatusPending
	}
	if ds.UploadedAt.IsZero() {
		ds.UploadedAt = time.Now()
	}

	query := `
		INSERT INTO data_sources (filename, original_filename, file_format, data_type, file_size, alert_id, report_type, status, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, NULLIF($9, ''), $10)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		ds.Filename,
		ds.OriginalFilename,
		ds.FileFormat,
		ds.DataType,
		ds.FileSize,
		ds.AlertID,
		ds.ReportType,
		ds.Status,
		ds.UploadedBy,
		ds.UploadedAt,
	).Scan(&ds.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create data source: %w", err)
	}

	return nil
}

func (r *dataSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	query := `
		SELECT id, filename, original_filename, file_format, data_type, file_size,
		       COALESCE(alert_id, ''), COALESCE(report_type, ''), status,
		       COALESCE(error_message, ''), COALESCE(uploaded_by, ''), uploaded_at
		FROM data_sources
		WHERE id = $1`

	var ds models.DataSource
	err := r.db.QueryRow(ctx, query, id).Scan(
		&ds.ID,
		&ds.Filename,
		&ds.OriginalFilename,
		&ds.FileFormat,
		&ds.DataType,
		&ds.FileSize,
		&ds.AlertID,
		&ds.ReportType,
		&ds.Status,
		&ds.ErrorMessage,
		&ds.UploadedBy,
		&ds.UploadedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get data source: %w", err)
	}

	return &ds, nil
}

func (r *dataSourceRepository) List(ctx context.Context) ([]*models.DataSource, error) {
	query := `
		SELECT id, filename, original_filename, file_format, data_type, file_size,
		       COALESCE(alert_id, ''), COALESCE(report_type, ''), status,
		       COALESCE(error_message, ''), COALESCE(uploaded_by, ''), uploaded_at
		FROM data_sources
		ORDER BY uploaded_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}
	defer rows.Close()

	var sources []*models.DataSource
	for rows.Next() {
		var ds models.DataSource
		err := rows.Scan(
			&ds.ID,
			&ds.Filename,
			&ds.OriginalFilename,
			&ds.FileFormat,
			&ds.DataType,
			&ds.FileSize,
			&ds.AlertID,
			&ds.ReportType,
			&ds.Status,
			&ds.ErrorMessage,
			&ds.UploadedBy,
			&ds.UploadedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan data source: %w", err)
		}
		sources = append(sources, &ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating data sources: %w", err)
	}

	return sources, nil
}

func (r *dataSourceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status, errorMessage string) error {
	query := `UPDATE data_sources SET status = $2, error_message = NULLIF($3, '') WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to update data source status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *dataSourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM data_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete data source: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Ensure dataSourceRepository implements DataSourceRepository at compile time.
var _ DataSourceRepository = (*dataSourceRepository)(nil)

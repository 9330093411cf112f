package repositories

import (
	"context"
	"fmt"

	"github.com/auditlens/auditlens-engine/pkg/database"
	"github.com/auditlens/auditlens-engine/pkg/models"
)

// ReferenceRepository provides read access to the static focus area and
// issue type reference data seeded by migrations.
type ReferenceRepository interface {
	ListFocusAreas(ctx context.Context) ([]*models.FocusArea, error)
	ListIssueTypes(ctx context.Context) ([]*models.IssueType, error)
}

type referenceRepository struct {
	db *database.DB
}

// NewReferenceRepository creates a new reference data repository.
func NewReferenceRepository(db *database.DB) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) ListFocusAreas(ctx context.Context) ([]*models.FocusArea, error) {
	query := `
		SELECT id, code, name, description, created_at
		FROM focus_areas
		ORDER BY code`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list focus areas: %w", err)
	}
	defer rows.Close()

	var areas []*models.FocusArea
	for rows.Next() {
		var fa models.FocusArea
		if err := rows.Scan(&fa.ID, &fa.Code, &fa.Name, &fa.Description, &fa.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan focus area: %w", err)
		}
		areas = append(areas, &fa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating focus areas: %w", err)
	}

	return areas, nil
}

func (r *referenceRepository) ListIssueTypes(ctx context.Context) ([]*models.IssueType, error) {
	query := `
		SELECT id, focus_area_id, code, name, description, default_severity, created_at
		FROM issue_types
		ORDER BY code`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list issue types: %w", err)
	}
	defer rows.Close()

	var types []*models.IssueType
	for rows.Next() {
		var it models.IssueType
		if err := rows.Scan(&it.ID, &it.FocusAreaID, &it.Code, &it.Name, &it.Description, &it.DefaultSeverity, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan issue type: %w", err)
		}
		types = append(types, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issue types: %w", err)
	}

	return types, nil
}

// Ensure referenceRepository implements ReferenceRepository at compile time.
var _ ReferenceRepository = (*referenceRepository)(nil)

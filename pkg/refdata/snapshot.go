// Package refdata provides an immutable, read-once snapshot of the
// classification reference catalog (focus areas and issue types).
//
// The snapshot is loaded at process start and injected into the
// classifiers by reference; nothing mutates it for the lifetime of a run.
package refdata

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/auditlens/auditlens-engine/pkg/models"
)

// ReferenceStore is the read-only lookup the snapshot is warmed from.
type ReferenceStore interface {
	ListFocusAreas(ctx context.Context) ([]*models.FocusArea, error)
	ListIssueTypes(ctx context.Context) ([]*models.IssueType, error)
}

// focusAreaOrder fixes the evaluation order of focus areas. The classifier
// iterates this order and requires a strictly higher score to replace the
// current leader, so on a tie the earlier area wins.
var focusAreaOrder = []string{
	models.FocusAreaBusinessProtection,
	models.FocusAreaBusinessControl,
	models.FocusAreaAccessGovernance,
	models.FocusAreaTechnicalControl,
	models.FocusAreaJobsControl,
	models.FocusAreaS4HANAExcellence,
}

// issueTypeOrder fixes the registration order of issue types. Within a
// focus area the first entry is the weak-signal classification default.
var issueTypeOrder = []string{
	models.IssueTypeFraudDetection,
	models.IssueTypeCybersecurityThreat,
	models.IssueTypeMaterialConversionFraud,
	models.IssueTypeVendorPaymentDiversion,
	models.IssueTypeProcessBottleneck,
	models.IssueTypeUnbilledDelivery,
	models.IssueTypeDataExchangeFailure,
	models.IssueTypeSoDViolation,
	models.IssueTypeUnauthorizedAccess,
	models.IssueTypeLongSession,
	models.IssueTypeSelfApproval,
	models.IssueTypeSystemDump,
	models.IssueTypeLockConflict,
	models.IssueTypeResourceExhaustion,
	models.IssueTypeLongRunningJob,
	models.IssueTypeJobFailure,
	models.IssueTypeMigrationIssue,
	models.IssueTypeFioriAdoption,
}

// Snapshot is an immutable view of the reference catalog.
type Snapshot struct {
	focusAreas  []*models.FocusArea
	byFocusCode map[string]*models.FocusArea
	byFocusID   map[uuid.UUID]*models.FocusArea

	issueTypes    []*models.IssueType
	byIssueCode   map[string]*models.IssueType
	byIssueID     map[uuid.UUID]*models.IssueType
	issuesByFocus map[uuid.UUID][]*models.IssueType
}

// NewSnapshot builds a snapshot from loaded reference rows. Focus areas
// and issue types are arranged into their fixed registration order
// regardless of how the store returned them; entries outside the known
// order sort after, in input order.
func NewSnapshot(areas []*models.FocusArea, issues []*models.IssueType) (*Snapshot, error) {
	s := &Snapshot{
		byFocusCode:   make(map[string]*models.FocusArea, len(areas)),
		byFocusID:     make(map[uuid.UUID]*models.FocusArea, len(areas)),
		byIssueCode:   make(map[string]*models.IssueType, len(issues)),
		byIssueID:     make(map[uuid.UUID]*models.IssueType, len(issues)),
		issuesByFocus: make(map[uuid.UUID][]*models.IssueType),
	}

	byCode := make(map[string]*models.FocusArea, len(areas))
	for _, fa := range areas {
		if _, dup := byCode[fa.Code]; dup {
			return nil, fmt.Errorf("duplicate focus area code %q", fa.Code)
		}
		byCode[fa.Code] = fa
	}
	for _, code := range focusAreaOrder {
		if fa, ok := byCode[code]; ok {
			s.focusAreas = append(s.focusAreas, fa)
			delete(byCode, code)
		}
	}
	// Any area outside the known order sorts after, in input order.
	for _, fa := range areas {
		if _, leftover := byCode[fa.Code]; leftover {
			s.focusAreas = append(s.focusAreas, fa)
		}
	}
	for _, fa := range s.focusAreas {
		s.byFocusCode[fa.Code] = fa
		s.byFocusID[fa.ID] = fa
	}

	issueByCode := make(map[string]*models.IssueType, len(issues))
	for _, it := range issues {
		if _, dup := issueByCode[it.Code]; dup {
			return nil, fmt.Errorf("duplicate issue type code %q", it.Code)
		}
		if _, ok := s.byFocusID[it.FocusAreaID]; !ok {
			return nil, fmt.Errorf("issue type %q references unknown focus area %s", it.Code, it.FocusAreaID)
		}
		issueByCode[it.Code] = it
	}
	var ordered []*models.IssueType
	for _, code := range issueTypeOrder {
		if it, ok := issueByCode[code]; ok {
			ordered = append(ordered, it)
			delete(issueByCode, code)
		}
	}
	for _, it := range issues {
		if _, leftover := issueByCode[it.Code]; leftover {
			ordered = append(ordered, it)
		}
	}
	for _, it := range ordered {
		s.issueTypes = append(s.issueTypes, it)
		s.byIssueCode[it.Code] = it
		s.byIssueID[it.ID] = it
		s.issuesByFocus[it.FocusAreaID] = append(s.issuesByFocus[it.FocusAreaID], it)
	}

	return s, nil
}

// Load warms a snapshot from the reference store.
func Load(ctx context.Context, store ReferenceStore) (*Snapshot, error) {
	areas, err := store.ListFocusAreas(ctx)
	if err != nil {
		return nil, fmt.Errorf("list focus areas: %w", err)
	}
	issues, err := store.ListIssueTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list issue types: %w", err)
	}
	return NewSnapshot(areas, issues)
}

// FocusAreas returns all focus areas in evaluation order.
func (s *Snapshot) FocusAreas() []*models.FocusArea {
	return s.focusAreas
}

// FocusAreaByCode looks up a focus area by code.
func (s *Snapshot) FocusAreaByCode(code string) (*models.FocusArea, bool) {
	fa, ok := s.byFocusCode[code]
	return fa, ok
}

// FocusAreaByID looks up a focus area by ID.
func (s *Snapshot) FocusAreaByID(id uuid.UUID) (*models.FocusArea, bool) {
	fa, ok := s.byFocusID[id]
	return fa, ok
}

// IssueTypes returns all issue types in registration order.
func (s *Snapshot) IssueTypes() []*models.IssueType {
	return s.issueTypes
}

// IssueTypesFor returns the issue types of one focus area, in registration
// order. The first entry is the weak-signal default for that area.
func (s *Snapshot) IssueTypesFor(focusAreaID uuid.UUID) []*models.IssueType {
	return s.issuesByFocus[focusAreaID]
}

// IssueTypeByCode looks up an issue type by code.
func (s *Snapshot) IssueTypeByCode(code string) (*models.IssueType, bool) {
	it, ok := s.byIssueCode[code]
	return it, ok
}

// IssueTypeByID looks up an issue type by ID.
func (s *Snapshot) IssueTypeByID(id uuid.UUID) (*models.IssueType, bool) {
	it, ok := s.byIssueID[id]
	return it, ok
}

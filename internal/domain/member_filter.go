package domain

import "github.com/google/uuid"

// ActiveFilter narrows members by status.
type ActiveFilter string

const (
	ActiveFilterAll      ActiveFilter = "all"
	ActiveFilterActive   ActiveFilter = "active"
	ActiveFilterInactive ActiveFilter = "inactive"
)

// MemberFilter represents filtering options for listing and exporting members.
// A non-empty SelectedIDs overrides every other filter.
type MemberFilter struct {
	Search        string
	Active        ActiveFilter
	DepartmentIDs []uuid.UUID
	Genders       []Gender
	Religions     []string
	SelectedIDs   []uuid.UUID
}

// HasSelection reports whether explicit member IDs were picked.
func (f MemberFilter) HasSelection() bool {
	return len(f.SelectedIDs) > 0
}

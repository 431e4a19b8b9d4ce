package domain

// SortDirection represents ordering direction for sortable fields.
type SortDirection string

const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// MemberSortField enumerates fields that can be sorted when listing members.
type MemberSortField string

const (
	MemberSortFieldFullName   MemberSortField = "full_name"
	MemberSortFieldNIK        MemberSortField = "nik"
	MemberSortFieldEmail      MemberSortField = "email"
	MemberSortFieldDepartment MemberSortField = "department"
	MemberSortFieldCreatedAt  MemberSortField = "created_at"
)

// MemberSort captures ordering preferences for member listings.
type MemberSort struct {
	Field     MemberSortField
	Direction SortDirection
}

// DefaultMemberSort orders members alphabetically by name.
var DefaultMemberSort = MemberSort{Field: MemberSortFieldFullName, Direction: SortDirectionAsc}

// Valid reports whether the sort uses a known field and direction.
func (s MemberSort) Valid() bool {
	switch s.Field {
	case MemberSortFieldFullName, MemberSortFieldNIK, MemberSortFieldEmail, MemberSortFieldDepartment, MemberSortFieldCreatedAt:
	default:
		return false
	}
	return s.Direction == SortDirectionAsc || s.Direction == SortDirectionDesc
}

package repository

import (
	"fmt"
	"strings"

	"github.com/rpattn/memberimport/internal/domain"

	"github.com/google/uuid"
)

const memberColumns = `m.id, m.organization_id, m.nik, m.nisn, m.full_name, m.email, m.phone, m.gender,
	m.birth_place, m.birth_date, m.religion, m.street, m.rt, m.rw, m.hamlet, m.village, m.district,
	m.department_id, COALESCE(d.name, ''), m.position, m.role, m.status, m.created_at, m.updated_at`

const memberFrom = ` FROM members m LEFT JOIN departments d ON d.id = m.department_id`

// queryBuilder accumulates positional arguments for one dialect.
type queryBuilder struct {
	placeholder func(n int) string
	like        string
	args        []any
}

func postgresBuilder() *queryBuilder {
	return &queryBuilder{placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }, like: "ILIKE"}
}

func sqliteBuilder() *queryBuilder {
	return &queryBuilder{placeholder: func(int) string { return "?" }, like: "LIKE"}
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return b.placeholder(len(b.args))
}

func (b *queryBuilder) in(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = b.arg(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func naturalKeyColumn(naturalKey string) (string, error) {
	switch naturalKey {
	case "nik", "email":
		return naturalKey, nil
	}
	return "", fmt.Errorf("unsupported natural key %q", naturalKey)
}

// where renders the filter for members of one organization. Explicit
// selections override every other filter.
func (b *queryBuilder) where(organizationID uuid.UUID, filter domain.MemberFilter) string {
	clauses := []string{"m.organization_id = " + b.arg(organizationID)}

	if filter.HasSelection() {
		ids := make([]any, len(filter.SelectedIDs))
		for i, id := range filter.SelectedIDs {
			ids[i] = id
		}
		clauses = append(clauses, "m.id IN "+b.in(ids))
		return " WHERE " + strings.Join(clauses, " AND ")
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		p := b.arg("%" + search + "%")
		clauses = append(clauses, fmt.Sprintf(
			"(m.full_name %[1]s %[2]s OR COALESCE(m.nik, '') %[1]s %[2]s OR COALESCE(m.email, '') %[1]s %[2]s OR m.phone %[1]s %[2]s)",
			b.like, p,
		))
	}
	switch filter.Active {
	case domain.ActiveFilterActive:
		clauses = append(clauses, "m.status = "+b.arg(string(domain.MemberStatusActive)))
	case domain.ActiveFilterInactive:
		clauses = append(clauses, "m.status = "+b.arg(string(domain.MemberStatusInactive)))
	}
	if len(filter.DepartmentIDs) > 0 {
		ids := make([]any, len(filter.DepartmentIDs))
		for i, id := range filter.DepartmentIDs {
			ids[i] = id
		}
		clauses = append(clauses, "m.department_id IN "+b.in(ids))
	}
	if len(filter.Genders) > 0 {
		genders := make([]any, len(filter.Genders))
		for i, g := range filter.Genders {
			genders[i] = string(g)
		}
		clauses = append(clauses, "m.gender IN "+b.in(genders))
	}
	if len(filter.Religions) > 0 {
		religions := make([]any, len(filter.Religions))
		for i, r := range filter.Religions {
			religions[i] = strings.ToLower(r)
		}
		clauses = append(clauses, "LOWER(m.religion) IN "+b.in(religions))
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func orderBy(sort domain.MemberSort) string {
	if !sort.Valid() {
		sort = domain.DefaultMemberSort
	}
	column := "m.full_name"
	switch sort.Field {
	case domain.MemberSortFieldNIK:
		column = "m.nik"
	case domain.MemberSortFieldEmail:
		column = "m.email"
	case domain.MemberSortFieldDepartment:
		column = "d.name"
	case domain.MemberSortFieldCreatedAt:
		column = "m.created_at"
	}
	direction := "ASC"
	if sort.Direction == domain.SortDirectionDesc {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, m.id ASC", column, direction)
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

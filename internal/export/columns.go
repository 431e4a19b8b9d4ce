package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpattn/memberimport/internal/domain"
)

// ErrNoFields is returned when an export names no columns.
var ErrNoFields = errors.New("at least one export field is required")

// Column is one exportable member attribute. Labels reuse the biodata catalog
// labels so an exported file maps back automatically on re-import.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	value func(domain.Member) string
}

var columns = []Column{
	{Key: "nik", Label: "NIK", value: func(m domain.Member) string { return m.NIK }},
	{Key: "nama", Label: "Nama", value: func(m domain.Member) string { return m.FullName }},
	{Key: "nisn", Label: "NISN", value: func(m domain.Member) string { return m.NISN }},
	{Key: "jenis_kelamin", Label: "Jenis Kelamin", value: func(m domain.Member) string { return string(m.Gender) }},
	{Key: "tempat_lahir", Label: "Tempat Lahir", value: func(m domain.Member) string { return m.BirthPlace }},
	{Key: "tanggal_lahir", Label: "Tanggal Lahir", value: func(m domain.Member) string {
		if m.BirthDate == nil {
			return ""
		}
		return m.BirthDate.Format("2006-01-02")
	}},
	{Key: "agama", Label: "Agama", value: func(m domain.Member) string { return m.Religion }},
	{Key: "jalan", Label: "Jalan", value: func(m domain.Member) string { return m.Street }},
	{Key: "rt", Label: "RT", value: func(m domain.Member) string { return m.RT }},
	{Key: "rw", Label: "RW", value: func(m domain.Member) string { return m.RW }},
	{Key: "dusun", Label: "Dusun", value: func(m domain.Member) string { return m.Hamlet }},
	{Key: "kelurahan", Label: "Kelurahan", value: func(m domain.Member) string { return m.Village }},
	{Key: "kecamatan", Label: "Kecamatan", value: func(m domain.Member) string { return m.District }},
	{Key: "no_telepon", Label: "No Telepon", value: func(m domain.Member) string { return m.Phone }},
	{Key: "email", Label: "Email", value: func(m domain.Member) string { return m.Email }},
	{Key: "department", Label: "Department/Group", value: func(m domain.Member) string { return m.DepartmentName }},
	{Key: "position", Label: "Position", value: func(m domain.Member) string { return m.Position }},
	{Key: "role", Label: "Role", value: func(m domain.Member) string { return m.Role }},
	{Key: "status", Label: "Status", value: func(m domain.Member) string { return string(m.Status) }},
	{Key: "created_at", Label: "Created At", value: func(m domain.Member) string {
		if m.CreatedAt.IsZero() {
			return ""
		}
		return m.CreatedAt.UTC().Format("2006-01-02 15:04:05")
	}},
}

// simple catalog keys that name the same attribute
var columnAliases = map[string]string{
	"full_name":     "nama",
	"phone":         "no_telepon",
	"department_id": "department",
}

// Columns lists every exportable column in default order.
func Columns() []Column {
	return append([]Column(nil), columns...)
}

// ResolveColumns maps requested field keys to columns, keeping request order
// and dropping repeats.
func ResolveColumns(fields []string) ([]Column, error) {
	index := make(map[string]Column, len(columns))
	for _, c := range columns {
		index[c.Key] = c
	}

	var out []Column
	seen := make(map[string]bool)
	for _, raw := range fields {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		if alias, ok := columnAliases[key]; ok {
			key = alias
		}
		column, ok := index[key]
		if !ok {
			return nil, fmt.Errorf("unknown export field %q", raw)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, column)
	}
	if len(out) == 0 {
		return nil, ErrNoFields
	}
	return out, nil
}

func labels(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Label
	}
	return out
}

func rowValues(cols []Column, m domain.Member) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.value(m)
	}
	return out
}

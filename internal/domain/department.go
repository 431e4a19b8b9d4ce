package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Department is an organization group members belong to.
type Department struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Code           string    `json:"code,omitempty"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

var departmentNoise = regexp.MustCompile(`[\s\-_.]+|[^\p{L}\p{N}]`)

// NormalizeDepartmentName lowercases and strips separators and punctuation so
// "Kelas X-A" and "kelas xa" compare equal.
func NormalizeDepartmentName(value string) string {
	return departmentNoise.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "")
}

// DepartmentMatchOptions tunes FindDepartment.
type DepartmentMatchOptions struct {
	MatchDescription bool
}

// FindDepartment resolves a spreadsheet value to a department. It tries exact
// name or code, then normalized name or code, then the description when
// enabled, and finally a substring match for values of three or more
// characters.
func FindDepartment(departments []Department, value string, opts DepartmentMatchOptions) (Department, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Department{}, false
	}
	lowered := strings.ToLower(value)
	for _, d := range departments {
		if strings.ToLower(d.Name) == lowered || (d.Code != "" && strings.ToLower(d.Code) == lowered) {
			return d, true
		}
	}

	normalized := NormalizeDepartmentName(value)
	if normalized == "" {
		return Department{}, false
	}
	for _, d := range departments {
		if NormalizeDepartmentName(d.Name) == normalized || (d.Code != "" && NormalizeDepartmentName(d.Code) == normalized) {
			return d, true
		}
	}
	if opts.MatchDescription {
		for _, d := range departments {
			if d.Description != "" && NormalizeDepartmentName(d.Description) == normalized {
				return d, true
			}
		}
	}
	if len([]rune(normalized)) >= 3 {
		for _, d := range departments {
			name := NormalizeDepartmentName(d.Name)
			if name != "" && (strings.Contains(name, normalized) || strings.Contains(normalized, name)) {
				return d, true
			}
		}
	}
	return Department{}, false
}

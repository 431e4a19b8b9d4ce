package domain

import (
	"fmt"
	"sort"
	"strings"
)

// FieldChange is one attribute that differs between two versions of a member.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Attributes flattens the importable member attributes keyed by biodata
// catalog key. Empty values are kept so removals show up in diffs.
func (m Member) Attributes() map[string]string {
	attrs := map[string]string{
		"nik":           m.NIK,
		"nisn":          m.NISN,
		"nama":          m.FullName,
		"email":         m.Email,
		"no_telepon":    m.Phone,
		"jenis_kelamin": string(m.Gender),
		"tempat_lahir":  m.BirthPlace,
		"tanggal_lahir": "",
		"agama":         m.Religion,
		"jalan":         m.Street,
		"rt":            m.RT,
		"rw":            m.RW,
		"dusun":         m.Hamlet,
		"kelurahan":     m.Village,
		"kecamatan":     m.District,
		"department":    m.DepartmentName,
		"position":      m.Position,
		"role":          m.Role,
		"status":        string(m.Status),
	}
	if m.BirthDate != nil {
		attrs["tanggal_lahir"] = m.BirthDate.Format("2006-01-02")
	}
	return attrs
}

// DiffMembers lists the attributes that changed from before to after, sorted
// by field. A nil before compares against an empty member.
func DiffMembers(before *Member, after Member) []FieldChange {
	var base map[string]string
	if before != nil {
		base = before.Attributes()
	}
	target := after.Attributes()

	keys := make([]string, 0, len(target))
	for key := range target {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var changes []FieldChange
	for _, key := range keys {
		if base[key] == target[key] {
			continue
		}
		changes = append(changes, FieldChange{Field: key, Before: base[key], After: target[key]})
	}
	return changes
}

// HistoryMessage renders an import history line such as
// `member 3201 updated: email "a@x.id" -> "b@x.id"`.
func HistoryMessage(key string, outcome UpsertOutcome, changes []FieldChange) string {
	if outcome == UpsertCreated {
		return fmt.Sprintf("member %s created", key)
	}
	if len(changes) == 0 {
		return fmt.Sprintf("member %s unchanged", key)
	}
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, fmt.Sprintf("%s %q -> %q", c.Field, c.Before, c.After))
	}
	return fmt.Sprintf("member %s updated: %s", key, strings.Join(parts, ", "))
}

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Gender is stored as male or female.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// MemberStatus tracks whether a member is active in the organization.
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
)

// Member is an organization member together with the biodata imported for it.
type Member struct {
	ID             uuid.UUID    `json:"id"`
	OrganizationID uuid.UUID    `json:"organization_id"`
	NIK            string       `json:"nik,omitempty"`
	NISN           string       `json:"nisn,omitempty"`
	FullName       string       `json:"full_name"`
	Email          string       `json:"email,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	Gender         Gender       `json:"gender,omitempty"`
	BirthPlace     string       `json:"birth_place,omitempty"`
	BirthDate      *time.Time   `json:"birth_date,omitempty"`
	Religion       string       `json:"religion,omitempty"`
	Street         string       `json:"street,omitempty"`
	RT             string       `json:"rt,omitempty"`
	RW             string       `json:"rw,omitempty"`
	Hamlet         string       `json:"hamlet,omitempty"`
	Village        string       `json:"village,omitempty"`
	District       string       `json:"district,omitempty"`
	DepartmentID   *uuid.UUID   `json:"department_id,omitempty"`
	DepartmentName string       `json:"department_name,omitempty"`
	Position       string       `json:"position,omitempty"`
	Role           string       `json:"role,omitempty"`
	Status         MemberStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewMemberFromValues builds a member from validated catalog values. Both the
// simple and the biodata catalog keys are understood; department names are
// kept in DepartmentName until they are resolved to an ID.
func NewMemberFromValues(organizationID uuid.UUID, values map[string]string) Member {
	now := time.Now()
	m := Member{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		NIK:            values["nik"],
		NISN:           values["nisn"],
		FullName:       firstNonEmpty(values["nama"], values["full_name"]),
		Email:          strings.ToLower(values["email"]),
		Phone:          firstNonEmpty(values["no_telepon"], values["phone"]),
		Gender:         Gender(values["jenis_kelamin"]),
		BirthPlace:     values["tempat_lahir"],
		Religion:       values["agama"],
		Street:         values["jalan"],
		RT:             values["rt"],
		RW:             values["rw"],
		Hamlet:         values["dusun"],
		Village:        values["kelurahan"],
		District:       values["kecamatan"],
		DepartmentName: firstNonEmpty(values["department_id"], values["department"]),
		Position:       values["position"],
		Role:           values["role"],
		Status:         MemberStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if values["status"] == string(MemberStatusInactive) {
		m.Status = MemberStatusInactive
	}
	if raw := values["tanggal_lahir"]; raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			m.BirthDate = &t
		}
	}
	if m.FullName == "" {
		m.FullName = m.Email
	}
	return m
}

// NaturalKey returns the identifying value for the given catalog key field.
func (m Member) NaturalKey(field string) string {
	switch field {
	case "nik":
		return m.NIK
	case "email":
		return m.Email
	}
	return ""
}

// WithDepartment returns a copy assigned to department.
func (m Member) WithDepartment(department Department) Member {
	id := department.ID
	m.DepartmentID = &id
	m.DepartmentName = department.Name
	m.UpdatedAt = time.Now()
	return m
}

// WithoutDepartment returns a copy with no department.
func (m Member) WithoutDepartment() Member {
	m.DepartmentID = nil
	m.DepartmentName = ""
	m.UpdatedAt = time.Now()
	return m
}

// UpsertOutcome reports whether an upsert inserted or updated a member.
type UpsertOutcome string

const (
	UpsertCreated UpsertOutcome = "created"
	UpsertUpdated UpsertOutcome = "updated"
)

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

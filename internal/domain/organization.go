package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant that owns members, departments and import logs.
type Organization struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewOrganization creates an organization with a fresh ID.
func NewOrganization(name, description string) Organization {
	now := time.Now()
	return Organization{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewOrganizationWithID creates an organization under a caller chosen ID, as
// the command line tool does when seeding a local database for --org.
func NewOrganizationWithID(id uuid.UUID, name string) Organization {
	o := NewOrganization(name, "")
	o.ID = id
	return o
}

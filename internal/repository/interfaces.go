package repository

import (
	"context"
	"errors"

	"github.com/rpattn/memberimport/internal/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// OrganizationRepository defines the interface for organization operations
type OrganizationRepository interface {
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error)
	List(ctx context.Context) ([]domain.Organization, error)
}

// DepartmentRepository defines the interface for department lookups.
type DepartmentRepository interface {
	Create(ctx context.Context, department domain.Department) (domain.Department, error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]domain.Department, error)
}

// MemberRepository persists members. Upsert matches existing rows on the
// natural key field ("nik" or "email") within the member's organization.
type MemberRepository interface {
	Upsert(ctx context.Context, member domain.Member, naturalKey string) (domain.Member, domain.UpsertOutcome, error)
	FindByNaturalKeys(ctx context.Context, organizationID uuid.UUID, naturalKey string, values []string) ([]domain.Member, error)
	List(ctx context.Context, organizationID uuid.UUID, filter domain.MemberFilter, sort domain.MemberSort, limit int, offset int) ([]domain.Member, int, error)
	Count(ctx context.Context, organizationID uuid.UUID, filter domain.MemberFilter) (int, error)
}

// ImportLogRepository stores row level import issues and history.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, organizationID uuid.UUID, fileName string, limit int, offset int) ([]domain.ImportLogEntry, error)
}

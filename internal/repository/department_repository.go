package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/memberimport/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository wires a department repository backed by pgxpool.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

func (r *departmentRepository) Create(ctx context.Context, department domain.Department) (domain.Department, error) {
	if department.ID == uuid.Nil {
		department.ID = uuid.New()
	}
	err := r.pool.QueryRow(
		ctx,
		`INSERT INTO departments (id, organization_id, code, name, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		department.ID, department.OrganizationID, department.Code, department.Name, department.Description,
	).Scan(&department.CreatedAt)
	if err != nil {
		return domain.Department{}, fmt.Errorf("failed to create department: %w", err)
	}
	return department, nil
}

func (r *departmentRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]domain.Department, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, organization_id, code, name, description, created_at
		 FROM departments WHERE organization_id = $1 ORDER BY name`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	departments := []domain.Department{}
	for rows.Next() {
		var d domain.Department
		if err := rows.Scan(&d.ID, &d.OrganizationID, &d.Code, &d.Name, &d.Description, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate departments: %w", err)
	}
	return departments, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpattn/memberimport/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type memberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository wires a member repository backed by pgxpool.
func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepository{pool: pool}
}

const upsertMemberSQL = `INSERT INTO members (
	id, organization_id, nik, nisn, full_name, email, phone, gender, birth_place, birth_date,
	religion, street, rt, rw, hamlet, village, district, department_id, position, role, status,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
ON CONFLICT (organization_id, %[1]s) WHERE %[1]s IS NOT NULL DO UPDATE SET
	nik = COALESCE(EXCLUDED.nik, members.nik),
	email = COALESCE(EXCLUDED.email, members.email),
	nisn = COALESCE(NULLIF(EXCLUDED.nisn, ''), members.nisn),
	full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), members.full_name),
	phone = COALESCE(NULLIF(EXCLUDED.phone, ''), members.phone),
	gender = COALESCE(NULLIF(EXCLUDED.gender, ''), members.gender),
	birth_place = COALESCE(NULLIF(EXCLUDED.birth_place, ''), members.birth_place),
	birth_date = COALESCE(EXCLUDED.birth_date, members.birth_date),
	religion = COALESCE(NULLIF(EXCLUDED.religion, ''), members.religion),
	street = COALESCE(NULLIF(EXCLUDED.street, ''), members.street),
	rt = COALESCE(NULLIF(EXCLUDED.rt, ''), members.rt),
	rw = COALESCE(NULLIF(EXCLUDED.rw, ''), members.rw),
	hamlet = COALESCE(NULLIF(EXCLUDED.hamlet, ''), members.hamlet),
	village = COALESCE(NULLIF(EXCLUDED.village, ''), members.village),
	district = COALESCE(NULLIF(EXCLUDED.district, ''), members.district),
	department_id = COALESCE(EXCLUDED.department_id, members.department_id),
	position = COALESCE(NULLIF(EXCLUDED.position, ''), members.position),
	role = COALESCE(NULLIF(EXCLUDED.role, ''), members.role),
	status = EXCLUDED.status,
	updated_at = now()
RETURNING id, created_at, updated_at, (xmax = 0)`

func (r *memberRepository) Upsert(ctx context.Context, member domain.Member, naturalKey string) (domain.Member, domain.UpsertOutcome, error) {
	if r.pool == nil {
		return domain.Member{}, "", fmt.Errorf("member repository not initialized")
	}
	column, err := naturalKeyColumn(naturalKey)
	if err != nil {
		return domain.Member{}, "", err
	}

	var inserted bool
	err = r.pool.QueryRow(
		ctx,
		fmt.Sprintf(upsertMemberSQL, column),
		member.ID,
		member.OrganizationID,
		nullable(member.NIK),
		member.NISN,
		member.FullName,
		nullable(member.Email),
		member.Phone,
		string(member.Gender),
		member.BirthPlace,
		member.BirthDate,
		member.Religion,
		member.Street,
		member.RT,
		member.RW,
		member.Hamlet,
		member.Village,
		member.District,
		member.DepartmentID,
		member.Position,
		member.Role,
		string(member.Status),
		member.CreatedAt,
		member.UpdatedAt,
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt, &inserted)
	if err != nil {
		return domain.Member{}, "", fmt.Errorf("failed to upsert member: %w", err)
	}

	if inserted {
		return member, domain.UpsertCreated, nil
	}
	return member, domain.UpsertUpdated, nil
}

func (r *memberRepository) FindByNaturalKeys(ctx context.Context, organizationID uuid.UUID, naturalKey string, values []string) ([]domain.Member, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("member repository not initialized")
	}
	column, err := naturalKeyColumn(naturalKey)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return []domain.Member{}, nil
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+memberColumns+memberFrom+` WHERE m.organization_id = $1 AND m.`+column+` = ANY($2)`,
		organizationID,
		values,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find members: %w", err)
	}
	return collectMembers(rows)
}

func (r *memberRepository) List(ctx context.Context, organizationID uuid.UUID, filter domain.MemberFilter, sort domain.MemberSort, limit int, offset int) ([]domain.Member, int, error) {
	if r.pool == nil {
		return nil, 0, fmt.Errorf("member repository not initialized")
	}
	total, err := r.Count(ctx, organizationID, filter)
	if err != nil {
		return nil, 0, err
	}

	b := postgresBuilder()
	query := `SELECT ` + memberColumns + memberFrom + b.where(organizationID, filter) + orderBy(sort)
	if limit > 0 {
		query += " LIMIT " + b.arg(limit)
	}
	if offset > 0 {
		query += " OFFSET " + b.arg(offset)
	}

	rows, err := r.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}
	members, err := collectMembers(rows)
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

func (r *memberRepository) Count(ctx context.Context, organizationID uuid.UUID, filter domain.MemberFilter) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("member repository not initialized")
	}
	b := postgresBuilder()
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+memberFrom+b.where(organizationID, filter), b.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return total, nil
}

func collectMembers(rows pgx.Rows) ([]domain.Member, error) {
	defer rows.Close()

	members := []domain.Member{}
	for rows.Next() {
		var (
			m         domain.Member
			nik       pgtype.Text
			email     pgtype.Text
			gender    string
			status    string
			birthDate pgtype.Date
		)
		if err := rows.Scan(
			&m.ID, &m.OrganizationID, &nik, &m.NISN, &m.FullName, &email, &m.Phone, &gender,
			&m.BirthPlace, &birthDate, &m.Religion, &m.Street, &m.RT, &m.RW, &m.Hamlet, &m.Village, &m.District,
			&m.DepartmentID, &m.DepartmentName, &m.Position, &m.Role, &status, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.NIK = nik.String
		m.Email = email.String
		m.Gender = domain.Gender(gender)
		m.Status = domain.MemberStatus(strings.ToLower(status))
		if birthDate.Valid {
			t := birthDate.Time
			m.BirthDate = &t
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

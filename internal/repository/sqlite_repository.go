package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/memberimport/internal/domain"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS organizations (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS departments (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	code            TEXT NOT NULL DEFAULT '',
	name            TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMP NOT NULL,
	UNIQUE (organization_id, name)
);
CREATE TABLE IF NOT EXISTS members (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	nik             TEXT,
	nisn            TEXT NOT NULL DEFAULT '',
	full_name       TEXT NOT NULL DEFAULT '',
	email           TEXT,
	phone           TEXT NOT NULL DEFAULT '',
	gender          TEXT NOT NULL DEFAULT '',
	birth_place     TEXT NOT NULL DEFAULT '',
	birth_date      TEXT,
	religion        TEXT NOT NULL DEFAULT '',
	street          TEXT NOT NULL DEFAULT '',
	rt              TEXT NOT NULL DEFAULT '',
	rw              TEXT NOT NULL DEFAULT '',
	hamlet          TEXT NOT NULL DEFAULT '',
	village         TEXT NOT NULL DEFAULT '',
	district        TEXT NOT NULL DEFAULT '',
	department_id   TEXT,
	position        TEXT NOT NULL DEFAULT '',
	role            TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'active',
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS members_organization_nik_key ON members (organization_id, nik) WHERE nik IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS members_organization_email_key ON members (organization_id, email) WHERE email IS NOT NULL;
CREATE TABLE IF NOT EXISTS import_logs (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	catalog         TEXT NOT NULL,
	file_name       TEXT NOT NULL,
	row_number      INTEGER,
	stage           TEXT NOT NULL,
	message         TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL
);
`

// SQLiteStore bundles the repositories of a single local SQLite database. It is
// used by the command line tool when no Postgres server is available.
type SQLiteStore struct {
	DB            *sql.DB
	Organizations OrganizationRepository
	Departments   DepartmentRepository
	Members       MemberRepository
	ImportLogs    ImportLogRepository
}

// OpenSQLite opens (or creates) a database file and applies the schema. Use
// ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return &SQLiteStore{
		DB:            db,
		Organizations: &sqliteOrganizationRepository{db: db},
		Departments:   &sqliteDepartmentRepository{db: db},
		Members:       &sqliteMemberRepository{db: db},
		ImportLogs:    &sqliteImportLogRepository{db: db},
	}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}

type sqliteOrganizationRepository struct {
	db *sql.DB
}

func (r *sqliteOrganizationRepository) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO organizations (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		org.ID, org.Name, org.Description, org.CreatedAt.UTC(), org.UpdatedAt.UTC(),
	)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, nil
}

func (r *sqliteOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	var org domain.Organization
	err := r.db.QueryRowContext(
		ctx,
		`SELECT id, name, description, created_at, updated_at FROM organizations WHERE id = ?`,
		id,
	).Scan(&org.ID, &org.Name, &org.Description, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Organization{}, fmt.Errorf("organization %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Organization{}, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

func (r *sqliteOrganizationRepository) List(ctx context.Context) ([]domain.Organization, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description, created_at, updated_at FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	orgs := []domain.Organization{}
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Description, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

type sqliteDepartmentRepository struct {
	db *sql.DB
}

func (r *sqliteDepartmentRepository) Create(ctx context.Context, department domain.Department) (domain.Department, error) {
	if department.ID == uuid.Nil {
		department.ID = uuid.New()
	}
	if department.CreatedAt.IsZero() {
		department.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO departments (id, organization_id, code, name, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		department.ID, department.OrganizationID, department.Code, department.Name, department.Description, department.CreatedAt,
	)
	if err != nil {
		return domain.Department{}, fmt.Errorf("failed to create department: %w", err)
	}
	return department, nil
}

func (r *sqliteDepartmentRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]domain.Department, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, organization_id, code, name, description, created_at FROM departments WHERE organization_id = ? ORDER BY name`,
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
	return departments, rows.Err()
}

type sqliteMemberRepository struct {
	db *sql.DB
}

func birthDateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func departmentValue(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (r *sqliteMemberRepository) Upsert(ctx context.Context, member domain.Member, naturalKey string) (domain.Member, domain.UpsertOutcome, error) {
	column, err := naturalKeyColumn(naturalKey)
	if err != nil {
		return domain.Member{}, "", err
	}
	key := member.NaturalKey(naturalKey)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Member{}, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		existingID uuid.UUID
		createdAt  time.Time
	)
	err = tx.QueryRowContext(
		ctx,
		`SELECT id, created_at FROM members WHERE organization_id = ? AND `+column+` = ?`,
		member.OrganizationID, key,
	).Scan(&existingID, &createdAt)

	outcome := domain.UpsertCreated
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO members (
				id, organization_id, nik, nisn, full_name, email, phone, gender, birth_place, birth_date,
				religion, street, rt, rw, hamlet, village, district, department_id, position, role, status,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			member.ID, member.OrganizationID, nullable(member.NIK), member.NISN, member.FullName,
			nullable(member.Email), member.Phone, string(member.Gender), member.BirthPlace,
			birthDateValue(member.BirthDate), member.Religion, member.Street, member.RT, member.RW,
			member.Hamlet, member.Village, member.District, departmentValue(member.DepartmentID),
			member.Position, member.Role, string(member.Status), member.CreatedAt.UTC(), member.UpdatedAt.UTC(),
		)
	case err != nil:
		return domain.Member{}, "", fmt.Errorf("failed to look up member: %w", err)
	default:
		outcome = domain.UpsertUpdated
		member.ID = existingID
		member.CreatedAt = createdAt
		_, err = tx.ExecContext(
			ctx,
			`UPDATE members SET
				nik = COALESCE(?, nik),
				email = COALESCE(?, email),
				nisn = COALESCE(NULLIF(?, ''), nisn),
				full_name = COALESCE(NULLIF(?, ''), full_name),
				phone = COALESCE(NULLIF(?, ''), phone),
				gender = COALESCE(NULLIF(?, ''), gender),
				birth_place = COALESCE(NULLIF(?, ''), birth_place),
				birth_date = COALESCE(?, birth_date),
				religion = COALESCE(NULLIF(?, ''), religion),
				street = COALESCE(NULLIF(?, ''), street),
				rt = COALESCE(NULLIF(?, ''), rt),
				rw = COALESCE(NULLIF(?, ''), rw),
				hamlet = COALESCE(NULLIF(?, ''), hamlet),
				village = COALESCE(NULLIF(?, ''), village),
				district = COALESCE(NULLIF(?, ''), district),
				department_id = COALESCE(?, department_id),
				position = COALESCE(NULLIF(?, ''), position),
				role = COALESCE(NULLIF(?, ''), role),
				status = ?,
				updated_at = ?
			WHERE id = ?`,
			nullable(member.NIK), nullable(member.Email), member.NISN, member.FullName, member.Phone,
			string(member.Gender), member.BirthPlace, birthDateValue(member.BirthDate), member.Religion,
			member.Street, member.RT, member.RW, member.Hamlet, member.Village, member.District,
			departmentValue(member.DepartmentID), member.Position, member.Role, string(member.Status),
			member.UpdatedAt.UTC(), existingID,
		)
	}
	if err != nil {
		return domain.Member{}, "", fmt.Errorf("failed to upsert member: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Member{}, "", fmt.Errorf("failed to commit member: %w", err)
	}
	return member, outcome, nil
}

func (r *sqliteMemberRepository) FindByNaturalKeys(ctx context.Context, organizationID uuid.UUID, naturalKey string, values []string) ([]domain.Member, error) {
	column, err := naturalKeyColumn(naturalKey)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return []domain.Member{}, nil
	}
	b := sqliteBuilder()
	keys := make([]any, len(values))
	for i, v := range values {
		keys[i] = v
	}
	query := `SELECT ` + memberColumns + memberFrom +
		` WHERE m.organization_id = ` + b.arg(organizationID) + ` AND m.` + column + ` IN ` + b.in(keys)
	rows, err := r.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find members: %w", err)
	}
	return collectSQLiteMembers(rows)
}

func (r *sqliteMemberRepository) List(ctx context.Context, organizationID uuid.UUID, filter domain.MemberFilter, sort domain.MemberSort, limit int, offset int) ([]domain.Member, int, error) {
	total, err := r.Count(ctx, organizationID, filter)
	if err != nil {
		return nil, 0, err
	}
	b := sqliteBuilder()
	query := `SELECT ` + memberColumns + memberFrom + b.where(organizationID, filter) + orderBy(sort)
	switch {
	case limit > 0:
		query += " LIMIT " + b.arg(limit)
	case offset > 0:
		query += " LIMIT -1"
	}
	if offset > 0 {
		query += " OFFSET " + b.arg(offset)
	}
	rows, err := r.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}
	members, err := collectSQLiteMembers(rows)
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

func (r *sqliteMemberRepository) Count(ctx context.Context, organizationID uuid.UUID, filter domain.MemberFilter) (int, error) {
	b := sqliteBuilder()
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+memberFrom+b.where(organizationID, filter), b.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return total, nil
}

func collectSQLiteMembers(rows *sql.Rows) ([]domain.Member, error) {
	defer rows.Close()

	members := []domain.Member{}
	for rows.Next() {
		var (
			m          domain.Member
			nik        sql.NullString
			email      sql.NullString
			gender     string
			status     string
			birthDate  sql.NullString
			department uuid.NullUUID
		)
		if err := rows.Scan(
			&m.ID, &m.OrganizationID, &nik, &m.NISN, &m.FullName, &email, &m.Phone, &gender,
			&m.BirthPlace, &birthDate, &m.Religion, &m.Street, &m.RT, &m.RW, &m.Hamlet, &m.Village, &m.District,
			&department, &m.DepartmentName, &m.Position, &m.Role, &status, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.NIK = nik.String
		m.Email = email.String
		m.Gender = domain.Gender(gender)
		m.Status = domain.MemberStatus(strings.ToLower(status))
		if department.Valid {
			id := department.UUID
			m.DepartmentID = &id
		}
		if birthDate.Valid {
			if t, err := time.Parse("2006-01-02", birthDate.String); err == nil {
				m.BirthDate = &t
			}
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

type sqliteImportLogRepository struct {
	db *sql.DB
}

func (r *sqliteImportLogRepository) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	var rowNumber any
	if entry.RowNumber != nil {
		rowNumber = *entry.RowNumber
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO import_logs (id, organization_id, catalog, file_name, row_number, stage, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.OrganizationID, entry.Catalog, entry.FileName, rowNumber, string(entry.Stage), entry.Message, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record import log: %w", err)
	}
	return nil
}

func (r *sqliteImportLogRepository) List(ctx context.Context, organizationID uuid.UUID, fileName string, limit int, offset int) ([]domain.ImportLogEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, organization_id, catalog, file_name, row_number, stage, message, created_at
		 FROM import_logs
		 WHERE organization_id = ? AND (? = '' OR file_name = ?)
		 ORDER BY created_at DESC, row_number ASC
		 LIMIT ? OFFSET ?`,
		organizationID, fileName, fileName, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.ImportLogEntry{}
	for rows.Next() {
		var (
			entry     domain.ImportLogEntry
			stage     string
			rowNumber sql.NullInt64
		)
		if err := rows.Scan(&entry.ID, &entry.OrganizationID, &entry.Catalog, &entry.FileName, &rowNumber, &stage, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}
		entry.Stage = domain.ImportLogStage(stage)
		if rowNumber.Valid {
			value := int(rowNumber.Int64)
			entry.RowNumber = &value
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate import logs: %w", err)
	}
	return logs, nil
}

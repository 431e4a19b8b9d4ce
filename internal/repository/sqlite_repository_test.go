package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rpattn/memberimport/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*SQLiteStore, domain.Organization) {
	t.Helper()
	ctx := context.Background()
	store, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	org, err := store.Organizations.Create(ctx, domain.NewOrganization("SMK Harapan", ""))
	require.NoError(t, err)
	return store, org
}

func TestSQLiteMemberUpsertByNaturalKey(t *testing.T) {
	ctx := context.Background()
	store, org := openTestStore(t)

	first := domain.NewMemberFromValues(org.ID, map[string]string{"nik": "3201", "nama": "Budi", "agama": "Islam"})
	saved, outcome, err := store.Members.Upsert(ctx, first, "nik")
	require.NoError(t, err)
	assert.Equal(t, domain.UpsertCreated, outcome)

	second := domain.NewMemberFromValues(org.ID, map[string]string{"nik": "3201", "nama": "Budi Santoso", "tanggal_lahir": "2001-08-17"})
	updated, outcome, err := store.Members.Upsert(ctx, second, "nik")
	require.NoError(t, err)
	assert.Equal(t, domain.UpsertUpdated, outcome)
	assert.Equal(t, saved.ID, updated.ID)

	found, err := store.Members.FindByNaturalKeys(ctx, org.ID, "nik", []string{"3201", "9999"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Budi Santoso", found[0].FullName)
	assert.Equal(t, "Islam", found[0].Religion, "blank values must not erase stored data")
	require.NotNil(t, found[0].BirthDate)
	assert.Equal(t, "2001-08-17", found[0].BirthDate.Format("2006-01-02"))
}

func TestSQLiteMemberUpsertRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store, org := openTestStore(t)

	_, _, err := store.Members.Upsert(ctx, domain.NewMemberFromValues(org.ID, map[string]string{"nik": "1", "nama": "A", "email": "a@example.com"}), "nik")
	require.NoError(t, err)

	_, _, err = store.Members.Upsert(ctx, domain.NewMemberFromValues(org.ID, map[string]string{"nik": "2", "nama": "B", "email": "a@example.com"}), "nik")
	assert.Error(t, err)
}

func TestSQLiteMemberListFilters(t *testing.T) {
	ctx := context.Background()
	store, org := openTestStore(t)

	dept, err := store.Departments.Create(ctx, domain.Department{OrganizationID: org.ID, Name: "Kelas X-A"})
	require.NoError(t, err)

	seed := []map[string]string{
		{"nik": "1", "nama": "Ani", "jenis_kelamin": "female", "agama": "Islam"},
		{"nik": "2", "nama": "Budi", "jenis_kelamin": "male", "agama": "Kristen"},
		{"nik": "3", "nama": "Citra", "jenis_kelamin": "female", "agama": "islam"},
	}
	var ids []uuid.UUID
	for i, values := range seed {
		m := domain.NewMemberFromValues(org.ID, values)
		if i == 2 {
			m = m.WithDepartment(dept)
		}
		saved, _, err := store.Members.Upsert(ctx, m, "nik")
		require.NoError(t, err)
		ids = append(ids, saved.ID)
	}

	members, total, err := store.Members.List(ctx, org.ID, domain.MemberFilter{Genders: []domain.Gender{domain.GenderFemale}}, domain.DefaultMemberSort, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Ani", members[0].FullName)

	members, _, err = store.Members.List(ctx, org.ID, domain.MemberFilter{Religions: []string{"ISLAM"}, DepartmentIDs: []uuid.UUID{dept.ID}}, domain.DefaultMemberSort, 0, 0)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Kelas X-A", members[0].DepartmentName)

	members, total, err = store.Members.List(ctx, org.ID, domain.MemberFilter{Search: "bud", SelectedIDs: []uuid.UUID{ids[0]}}, domain.DefaultMemberSort, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Ani", members[0].FullName, "selection overrides search")

	members, total, err = store.Members.List(ctx, org.ID, domain.MemberFilter{}, domain.MemberSort{Field: domain.MemberSortFieldNIK, Direction: domain.SortDirectionDesc}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, members, 1)
	assert.Equal(t, "2", members[0].NIK)

	count, err := store.Members.Count(ctx, org.ID, domain.MemberFilter{Active: domain.ActiveFilterInactive})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSQLiteImportLogs(t *testing.T) {
	ctx := context.Background()
	store, org := openTestStore(t)

	row := 3
	require.NoError(t, store.ImportLogs.Record(ctx, domain.ImportLogEntry{
		OrganizationID: org.ID,
		Catalog:        "biodata",
		FileName:       "siswa.xlsx",
		RowNumber:      &row,
		Stage:          domain.ImportLogStageValidation,
		Message:        "NIK is required",
	}))
	require.NoError(t, store.ImportLogs.Record(ctx, domain.ImportLogEntry{
		OrganizationID: org.ID,
		Catalog:        "biodata",
		FileName:       "other.xlsx",
		Stage:          domain.ImportLogStageHistory,
		Message:        "member 1 created",
	}))

	logs, err := store.ImportLogs.List(ctx, org.ID, "siswa.xlsx", 0, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].RowNumber)
	assert.Equal(t, 3, *logs[0].RowNumber)
	assert.WithinDuration(t, time.Now(), logs[0].CreatedAt, time.Minute)

	all, err := store.ImportLogs.List(ctx, org.ID, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteOrganizationLookup(t *testing.T) {
	ctx := context.Background()
	store, org := openTestStore(t)

	got, err := store.Organizations.GetByID(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, org.Name, got.Name)

	_, err = store.Organizations.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

package session

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rpattn/memberimport/internal/spreadsheet"
	"github.com/rpattn/memberimport/pkg/mapping"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession(t *testing.T) *Session {
	t.Helper()
	sheet, err := spreadsheet.Parse("siswa.csv", []byte("NIK,Nama Lengkap\n3201,Budi\n,Ani\n"), spreadsheet.Options{HeaderRow: 1})
	require.NoError(t, err)
	return New(uuid.New(), mapping.CatalogBiodata, sheet, mapping.Mapping{"nik": "NIK", "nama": "Nama Lengkap"})
}

func TestNewCapturesSheet(t *testing.T) {
	s := sampleSession(t)

	assert.Equal(t, "siswa.csv", s.FileName)
	assert.Equal(t, []string{"NIK", "Nama Lengkap"}, s.Headers)
	assert.Equal(t, 2, s.FirstDataRow())

	rows := s.Rows()
	require.Len(t, rows, 2)
	v, _ := rows[1].Get("Nama Lengkap")
	assert.Equal(t, "Ani", v)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	s := sampleSession(t)

	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Mapping, got.Mapping)
	assert.Equal(t, s.Values, got.Values)

	got.Mapping.Assign("nik", "")
	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "NIK", again.Mapping["nik"], "stored sessions are not shared with callers")

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	clock := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	s := sampleSession(t)
	require.NoError(t, store.Save(ctx, s))

	clock = clock.Add(59 * time.Second)
	_, err := store.Get(ctx, s.ID)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Second)
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("MEMBERIMPORT_TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("MEMBERIMPORT_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := NewRedisClient(addr, "", 0)
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, time.Minute)

	s := sampleSession(t)
	require.NoError(t, store.Save(ctx, s))
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Headers, got.Headers)

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpattn/memberimport/internal/domain"
	"github.com/rpattn/memberimport/internal/memberloader"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	log, hook := test.NewNullLogger()
	handler := LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports/x", nil))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, http.StatusNotFound, entry.Data["status"])
	assert.Equal(t, 7, entry.Data["bytes"])
	assert.Equal(t, "/api/imports/x", entry.Data["path"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestLoggingMiddlewareKeepsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	handler := LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"abc-123"`)
}

type nopMemberRepo struct{}

func (nopMemberRepo) Upsert(ctx context.Context, member domain.Member, naturalKey string) (domain.Member, domain.UpsertOutcome, error) {
	return member, domain.UpsertCreated, nil
}

func (nopMemberRepo) FindByNaturalKeys(ctx context.Context, organizationID uuid.UUID, naturalKey string, values []string) ([]domain.Member, error) {
	return nil, nil
}

func (nopMemberRepo) List(ctx context.Context, organizationID uuid.UUID, filter domain.MemberFilter, sort domain.MemberSort, limit int, offset int) ([]domain.Member, int, error) {
	return nil, 0, nil
}

func (nopMemberRepo) Count(ctx context.Context, organizationID uuid.UUID, filter domain.MemberFilter) (int, error) {
	return 0, nil
}

func TestDataLoaderMiddlewareIsPerRequest(t *testing.T) {
	var seen []*memberloader.MemberLoader
	handler := DataLoaderMiddleware(nopMemberRepo{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, memberloader.FromContext(r.Context()))
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/imports/x/test", nil))
	}

	require.Len(t, seen, 2)
	assert.NotNil(t, seen[0])
	assert.NotSame(t, seen[0], seen[1])
}

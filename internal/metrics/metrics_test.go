package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRowsByOutcome(t *testing.T) {
	m := NewImportMetrics()
	m.AddRows("biodata", "import", OutcomeCreated, 3)
	m.AddRows("biodata", "import", OutcomeCreated, 2)
	m.AddRows("biodata", "import", OutcomeRejected, 0)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.rows.WithLabelValues("biodata", "import", OutcomeCreated)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rows.WithLabelValues("biodata", "import", OutcomeRejected)))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *ImportMetrics
	m.AddRows("simple", "test", OutcomeAccepted, 1)
	m.ObserveRun("simple", "test", time.Now())
	m.AddExported("csv", 1)
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewImportMetrics()
	m.ObserveRun("simple", "test", time.Now())
	m.AddExported("xlsx", 4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `memberimport_runs_total{catalog="simple",mode="test"} 1`)
	assert.Contains(t, string(body), `memberimport_exported_rows_total{format="xlsx"} 4`)
}

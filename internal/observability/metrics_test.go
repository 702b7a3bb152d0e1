package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanMetrics_StartScan(t *testing.T) {
	m := NewScanMetrics()

	done := m.StartScan()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveScans))
	done(ResultOK, 3, 1, 4)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveScans))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues(ResultOK)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FilesVisited))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesFailed))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Edges))

	m.StartScan()(ResultLimitExceeded, 1, 0, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues(ResultLimitExceeded)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Edges))
}

func TestScanMetrics_Handler(t *testing.T) {
	m := NewScanMetrics()
	m.StartScan()(ResultOK, 2, 0, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `cppig_scans_total{result="ok"} 1`)
	assert.Contains(t, string(body), "cppig_files_visited_total 2")
	assert.Contains(t, string(body), "cppig_scan_duration_seconds_count 1")
}

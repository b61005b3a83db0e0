package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobboard-scraper/internal/metrics"
	"go-jobboard-scraper/internal/scraper"
)

func TestRunFinished_Outcomes(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.RunStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunInProgress))

	m.RunFinished(scraper.Stats{Extracted: 6, Rejected: 1, Failed: 2, LoadMoreAttempts: 3, Duration: 40 * time.Second}, nil)
	m.RunFinished(scraper.Stats{}, &scraper.RunError{Phase: scraper.Searching, Err: errors.New("boom")})
	m.RunFinished(scraper.Stats{Extracted: 2}, &scraper.RunError{Phase: scraper.Extracting, Err: errors.New("browser crashed")})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunInProgress))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("success", "draining")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed", "searching")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("partial", "extracting")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.JobsScraped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CardsFailed))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LoadMoreRounds))
}

func TestRecordRejectedAndPersisted(t *testing.T) {
	m := metrics.New(nil)

	m.RecordRejected("missing_field")
	m.RecordRejected("missing_field")
	m.RecordPersisted(3, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobsRejected.WithLabelValues("missing_field")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.JobsPersisted.WithLabelValues("inserted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsPersisted.WithLabelValues("updated")))
}

func TestHandler(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.RecordRejected("missing_field")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `jobscraper_jobs_rejected_total{reason="missing_field"} 1`)
}

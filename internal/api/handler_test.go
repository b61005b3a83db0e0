package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobboard-scraper/internal/api"
	"go-jobboard-scraper/internal/browser"
	"go-jobboard-scraper/internal/browser/browsertest"
	"go-jobboard-scraper/internal/logger"
	"go-jobboard-scraper/internal/models"
	"go-jobboard-scraper/internal/retry"
	"go-jobboard-scraper/internal/scraper"
	"go-jobboard-scraper/internal/scraper/monster"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeScraper struct {
	result *scraper.Result
	err    error
	block  chan struct{}

	mu    sync.Mutex
	calls []int
}

func (f *fakeScraper) ScrapeJobs(ctx context.Context, _, _ string, maxRecords int) (*scraper.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, maxRecords)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

type memorySink struct {
	saved map[string][]models.JobRecord
	err   error
}

func (m *memorySink) UpsertJobs(_ context.Context, owner string, jobs []models.JobRecord) (models.UpsertSummary, error) {
	if m.err != nil {
		return models.UpsertSummary{}, m.err
	}
	if m.saved == nil {
		m.saved = map[string][]models.JobRecord{}
	}
	m.saved[owner] = append(m.saved[owner], jobs...)
	return models.UpsertSummary{Inserted: len(jobs)}, nil
}

func (m *memorySink) ListJobs(_ context.Context, owner string, _ int) ([]models.StoredJob, error) {
	var out []models.StoredJob
	for _, j := range m.saved[owner] {
		out = append(out, models.StoredJob{OwnerID: owner, JobRecord: j})
	}
	return out, nil
}

func jobs(ids ...string) []models.JobRecord {
	out := make([]models.JobRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.JobRecord{ExternalID: id, Title: "Engineer", CompanyName: "Acme", Location: "Remote"})
	}
	return out
}

func do(r http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(api.UserHeader, user)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func newRouter(s scraper.JobScraper, sink api.Sink) http.Handler {
	h := api.NewHandler(s, sink, nil, time.Minute, logger.NewNop())
	return api.NewRouter(h, nil, logger.NewNop())
}

func TestScrape_SavesForCaller(t *testing.T) {
	fs := &fakeScraper{result: &scraper.Result{Jobs: jobs("j1", "j2")}}
	sink := &memorySink{}
	r := newRouter(fs, sink)

	rec := do(r, http.MethodPost, "/api/v1/scrape", "user-1", `{"job_title":"Engineer","location":"Remote","max_records":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.ScrapeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "scraped 2 jobs", resp.Message)
	require.NotNil(t, resp.Saved)
	assert.Equal(t, 2, resp.Saved.Inserted)
	assert.Len(t, sink.saved["user-1"], 2)
	assert.Equal(t, []int{5}, fs.calls)
}

func TestScrape_DefaultsMaxRecords(t *testing.T) {
	fs := &fakeScraper{result: &scraper.Result{}}
	r := newRouter(fs, nil)

	rec := do(r, http.MethodPost, "/api/v1/scrape", "user-1", `{"job_title":"Engineer","location":"Remote"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{100}, fs.calls)
	assert.Contains(t, rec.Body.String(), `"jobs":[]`)
	assert.Contains(t, rec.Body.String(), "scraped 0 jobs")
}

func TestScrape_RejectsBadRequests(t *testing.T) {
	r := newRouter(&fakeScraper{result: &scraper.Result{}}, nil)

	tests := []struct {
		name string
		user string
		body string
		want int
	}{
		{name: "no identity", body: `{"job_title":"a","location":"b"}`, want: http.StatusUnauthorized},
		{name: "missing title", user: "u", body: `{"location":"b"}`, want: http.StatusBadRequest},
		{name: "missing location", user: "u", body: `{"job_title":"a"}`, want: http.StatusBadRequest},
		{name: "max too large", user: "u", body: `{"job_title":"a","location":"b","max_records":501}`, want: http.StatusBadRequest},
		{name: "max negative", user: "u", body: `{"job_title":"a","location":"b","max_records":-1}`, want: http.StatusBadRequest},
		{name: "not json", user: "u", body: `job_title=a`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, http.MethodPost, "/api/v1/scrape", tt.user, tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestScrape_PhaseFailure(t *testing.T) {
	fs := &fakeScraper{
		result: &scraper.Result{},
		err:    &scraper.RunError{Phase: scraper.Searching, Err: errors.New("selector timeout")},
	}
	r := newRouter(fs, &memorySink{})

	rec := do(r, http.MethodPost, "/api/v1/scrape", "user-1", `{"job_title":"a","location":"b"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "search could not be completed")
	assert.NotContains(t, rec.Body.String(), "selector")
}

func TestScrape_PartialResultIsSaved(t *testing.T) {
	fs := &fakeScraper{
		result: &scraper.Result{Jobs: jobs("j1")},
		err:    &scraper.RunError{Phase: scraper.Extracting, Err: browser.ErrClosed},
	}
	sink := &memorySink{}
	r := newRouter(fs, sink)

	rec := do(r, http.MethodPost, "/api/v1/scrape", "user-1", `{"job_title":"a","location":"b"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scraped 1 jobs before the run stopped")
	assert.Len(t, sink.saved["user-1"], 1)
}

func TestScrape_SinkFailure(t *testing.T) {
	fs := &fakeScraper{result: &scraper.Result{Jobs: jobs("j1")}}
	r := newRouter(fs, &memorySink{err: errors.New("connection refused")})

	rec := do(r, http.MethodPost, "/api/v1/scrape", "user-1", `{"job_title":"a","location":"b"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestScrape_OneRunAtATime(t *testing.T) {
	fs := &fakeScraper{result: &scraper.Result{}, block: make(chan struct{})}
	r := newRouter(fs, nil)

	done := make(chan int)
	go func() {
		done <- do(r, http.MethodPost, "/api/v1/scrape", "user-1", `{"job_title":"a","location":"b"}`).Code
	}()
	require.Eventually(t, func() bool {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		return len(fs.calls) == 1
	}, time.Second, 5*time.Millisecond)

	rec := do(r, http.MethodPost, "/api/v1/scrape", "user-2", `{"job_title":"a","location":"b"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(fs.block)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestListJobs(t *testing.T) {
	sink := &memorySink{saved: map[string][]models.JobRecord{"user-1": jobs("j1", "j2")}}
	r := newRouter(&fakeScraper{}, sink)

	rec := do(r, http.MethodGet, "/api/v1/jobs?limit=10", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)

	rec = do(r, http.MethodGet, "/api/v1/jobs", "user-2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"jobs":[]`)

	rec = do(r, http.MethodGet, "/api/v1/jobs?limit=1000", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	r := newRouter(&fakeScraper{}, nil)
	rec := do(r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScrape_AgainstFixtureBoard(t *testing.T) {
	site := monster.Site(scraper.Selectors{})
	site.HomeURL = browsertest.HomeURL
	fixture := &browsertest.Site{Listings: []browsertest.Listing{
		{ID: "j1", Title: "Go Developer", Company: "Acme", Location: "Remote"},
		{ID: "j2", Title: "SRE", Company: "Globex", Location: "Berlin"},
		{ID: "j3", Title: "", Company: "Initech", Location: "Austin"},
	}}
	orch := scraper.NewOrchestrator(browsertest.NewLauncher(fixture), nil, site,
		scraper.Options{Retry: retry.Config{MaxAttempts: 1}}, logger.NewNop())
	sink := &memorySink{}
	r := newRouter(orch, sink)

	rec := do(r, http.MethodPost, "/api/v1/scrape", "user-1", `{"job_title":"Go","location":"Remote","max_records":10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.ScrapeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 1, resp.Stats.Rejected)
	assert.Len(t, sink.saved["user-1"], 2)
}

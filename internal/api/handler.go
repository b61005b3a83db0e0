// Package api exposes scrape runs over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"go-jobboard-scraper/internal/logger"
	"go-jobboard-scraper/internal/models"
	"go-jobboard-scraper/internal/scraper"
)

// UserHeader carries the caller's identity. Jobs are stored per user.
const UserHeader = "X-User-ID"

// Sink persists scraped jobs keyed on (owner, externalId).
type Sink interface {
	UpsertJobs(ctx context.Context, ownerID string, jobs []models.JobRecord) (models.UpsertSummary, error)
	ListJobs(ctx context.Context, ownerID string, limit int) ([]models.StoredJob, error)
}

// PersistRecorder is told how many rows each save touched.
type PersistRecorder interface {
	RecordPersisted(inserted, updated int)
}

type ScrapeRequest struct {
	JobTitle   string `json:"job_title" binding:"required"`
	Location   string `json:"location" binding:"required"`
	MaxRecords int    `json:"max_records" binding:"omitempty,min=1,max=500"`
}

type ScrapeResponse struct {
	Jobs    []models.JobRecord    `json:"jobs"`
	Count   int                   `json:"count"`
	Saved   *models.UpsertSummary `json:"saved,omitempty"`
	Stats   scraper.Stats         `json:"stats"`
	Message string                `json:"message"`
}

type Handler struct {
	scraper    scraper.JobScraper
	sink       Sink
	recorder   PersistRecorder
	runTimeout time.Duration
	defaultMax int
	logger     logger.Logger

	// one browser at a time
	running sync.Mutex
}

// NewHandler serves runs from s. sink and recorder may be nil.
func NewHandler(s scraper.JobScraper, sink Sink, recorder PersistRecorder, runTimeout time.Duration, log logger.Logger) *Handler {
	return &Handler{
		scraper:    s,
		sink:       sink,
		recorder:   recorder,
		runTimeout: runTimeout,
		defaultMax: 100,
		logger:     log,
	}
}

// Scrape runs one search and saves the result for the calling user.
func (h *Handler) Scrape(c *gin.Context) {
	owner := c.GetString(ownerKey)

	var req ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_title and location are required; max_records must be between 1 and 500"})
		return
	}
	if req.MaxRecords == 0 {
		req.MaxRecords = h.defaultMax
	}

	if !h.running.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "a scrape is already running, try again later"})
		return
	}
	defer h.running.Unlock()

	ctx := c.Request.Context()
	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	h.logger.Info("Scrape requested",
		logger.String("owner", owner),
		logger.String("title", req.JobTitle),
		logger.String("location", req.Location),
		logger.Int("max_records", req.MaxRecords),
	)
	result, err := h.scraper.ScrapeJobs(ctx, req.JobTitle, req.Location, req.MaxRecords)
	if err != nil && (result == nil || len(result.Jobs) == 0) {
		c.JSON(http.StatusBadGateway, gin.H{"error": userMessage(err)})
		return
	}
	if result == nil {
		result = &scraper.Result{}
	}

	resp := ScrapeResponse{Jobs: result.Jobs, Count: len(result.Jobs), Stats: result.Stats}
	if resp.Jobs == nil {
		resp.Jobs = []models.JobRecord{}
	}
	if h.sink != nil && len(result.Jobs) > 0 {
		// saving must not be cut short by a client that went away
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 30*time.Second)
		defer cancel()
		summary, serr := h.sink.UpsertJobs(saveCtx, owner, result.Jobs)
		if serr != nil {
			h.logger.Error("Failed to save jobs", logger.String("owner", owner), logger.Error(serr))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "scraped jobs could not be saved"})
			return
		}
		if h.recorder != nil {
			h.recorder.RecordPersisted(summary.Inserted, summary.Updated)
		}
		resp.Saved = &summary
	}

	resp.Message = fmt.Sprintf("scraped %d jobs", resp.Count)
	if err != nil {
		resp.Message += " before the run stopped: " + userMessage(err)
	}
	c.JSON(http.StatusOK, resp)
}

// ListJobs returns the calling user's saved jobs.
func (h *Handler) ListJobs(c *gin.Context) {
	if h.sink == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no job store configured"})
		return
	}
	var q struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}
	jobs, err := h.sink.ListJobs(c.Request.Context(), c.GetString(ownerKey), q.Limit)
	if err != nil {
		h.logger.Error("Failed to list jobs", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	if jobs == nil {
		jobs = []models.StoredJob{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// userMessage turns a run failure into one actionable sentence.
func userMessage(err error) string {
	var runErr *scraper.RunError
	if !errors.As(err, &runErr) {
		return "scrape failed"
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "the scrape took too long and was stopped"
	case errors.Is(err, scraper.ErrBlocked):
		return "the job board blocked the request, try again later or configure a proxy"
	case runErr.Phase == scraper.Initializing:
		return "the browser could not be started"
	case runErr.Phase == scraper.Searching:
		return "the job board search could not be completed"
	default:
		return "the scrape stopped unexpectedly"
	}
}

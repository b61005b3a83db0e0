package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"go-jobboard-scraper/internal/browser"
	"go-jobboard-scraper/internal/dedup"
	"go-jobboard-scraper/internal/logger"
	"go-jobboard-scraper/internal/models"
)

// Card is a job card on the results page together with its site id.
type Card struct {
	ID      string
	Element browser.Element
}

// Extractor finds unprocessed job cards and reads their detail views.
type Extractor struct {
	site          Site
	detailTimeout time.Duration
	limiter       *rate.Limiter
	log           logger.Logger
}

// NewExtractor paces card clicks at most one per clickInterval.
// A zero interval does not pace.
func NewExtractor(site Site, detailTimeout, clickInterval time.Duration, log logger.Logger) *Extractor {
	limit := rate.Inf
	if clickInterval > 0 {
		limit = rate.Every(clickInterval)
	}
	return &Extractor{
		site:          site,
		detailTimeout: detailTimeout,
		limiter:       rate.NewLimiter(limit, 1),
		log:           log,
	}
}

// CollectUnprocessed returns the cards on the current page whose id is not in
// processed, in page order. Cards without a readable id are skipped, and an
// id repeated on the page is returned once.
func (e *Extractor) CollectUnprocessed(ctx context.Context, sess browser.Session, processed *dedup.Set) ([]Card, error) {
	sel := e.site.Selectors
	elements, err := sess.QueryAll(ctx, sel.Card)
	if err != nil {
		return nil, fmt.Errorf("query job cards: %w", err)
	}

	cards := make([]Card, 0, len(elements))
	batch := make(map[string]struct{}, len(elements))
	skippedNoID := 0
	for _, el := range elements {
		id, ok := sess.Attribute(ctx, el, sel.CardIDAttribute)
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			skippedNoID++
			continue
		}
		if processed.Has(id) {
			continue
		}
		if _, dup := batch[id]; dup {
			continue
		}
		batch[id] = struct{}{}
		cards = append(cards, Card{ID: id, Element: el})
	}

	e.log.Debug("Collected job cards",
		logger.Int("on_page", len(elements)),
		logger.Int("unprocessed", len(cards)),
		logger.Int("without_id", skippedNoID),
	)
	return cards, nil
}

// detailPoll is how often a detail view still showing the previous card is
// read again.
const detailPoll = 25 * time.Millisecond

// ExtractOne opens card's detail view and reads the listing. Fields that are
// missing come back empty; only a detail view that never loads, or never
// leaves the previous card, is an error, reported as *ExtractionError. The
// caller marks the id processed.
func (e *Extractor) ExtractOne(ctx context.Context, sess browser.Session, card Card) (*models.RawJobRecord, error) {
	sel := e.site.Selectors
	if err := e.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			// the wait would outlast ctx's deadline
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return nil, &ExtractionError{JobID: card.ID, Err: err}
	}
	previous := e.detailSnapshot(ctx, sess)
	if err := sess.Click(ctx, card.Element); err != nil {
		return nil, &ExtractionError{JobID: card.ID, Err: fmt.Errorf("open detail view: %w", err)}
	}
	if err := sess.WaitForSelector(ctx, sel.DetailTitle, e.detailTimeout); err != nil {
		browser.CaptureOnFailure(sess, "detail-"+card.ID)
		return nil, &ExtractionError{JobID: card.ID, Err: err}
	}
	if err := e.awaitDetailChange(ctx, sess, previous); err != nil {
		browser.CaptureOnFailure(sess, "detail-"+card.ID)
		return nil, &ExtractionError{JobID: card.ID, Err: err}
	}

	raw := &models.RawJobRecord{
		JobID:       card.ID,
		JobTitle:    e.text(ctx, sess, sel.DetailTitle),
		CompanyName: e.text(ctx, sess, sel.DetailCompany),
		Location:    e.text(ctx, sess, sel.DetailLocation),
		Salary:      optional(e.text(ctx, sess, sel.DetailSalary)),
		PostingDate: e.text(ctx, sess, sel.DetailPostedDate),
	}
	if sel.DetailDescription != "" {
		if html, ok := sess.HTMLOf(ctx, sel.DetailDescription); ok {
			raw.JobDescription = optional(strings.TrimSpace(html))
		}
	}
	return raw, nil
}

// detailSnapshot fingerprints the open detail view, "" when none is open.
func (e *Extractor) detailSnapshot(ctx context.Context, sess browser.Session) string {
	sel := e.site.Selectors
	title, ok := sess.TextOf(ctx, sel.DetailTitle)
	if !ok {
		return ""
	}
	parts := []string{
		"title:" + cleanText(title),
		e.text(ctx, sess, sel.DetailCompany),
		e.text(ctx, sess, sel.DetailLocation),
		e.text(ctx, sess, sel.DetailPostedDate),
	}
	if sel.DetailDescription != "" {
		html, _ := sess.HTMLOf(ctx, sel.DetailDescription)
		parts = append(parts, html)
	}
	return strings.Join(parts, "\x00")
}

// awaitDetailChange polls until a loaded detail view differs from previous.
func (e *Extractor) awaitDetailChange(ctx context.Context, sess browser.Session, previous string) error {
	if previous == "" {
		return nil
	}
	deadline := time.Now().Add(e.detailTimeout)
	for {
		if snap := e.detailSnapshot(ctx, sess); snap != "" && snap != previous {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrStaleDetail
		}
		timer := time.NewTimer(detailPoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (e *Extractor) text(ctx context.Context, sess browser.Session, selector string) string {
	if selector == "" {
		return ""
	}
	v, ok := sess.TextOf(ctx, selector)
	if !ok {
		return ""
	}
	return cleanText(v)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package scraper

import (
	"context"
	"errors"
	"fmt"

	"go-jobboard-scraper/internal/browser"
)

// ErrBlocked means the site served a bot-wall page instead of content.
var ErrBlocked = errors.New("blocked by bot protection")

// ErrStaleDetail means the detail view kept showing the previous card.
var ErrStaleDetail = errors.New("detail view did not switch to the clicked card")

// SearchFailedError is returned once every search attempt failed.
type SearchFailedError struct {
	Attempts int
	Err      error
}

func (e *SearchFailedError) Error() string {
	return fmt.Sprintf("search failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *SearchFailedError) Unwrap() error { return e.Err }

// ExtractionError is a per-card failure. It never aborts a run.
type ExtractionError struct {
	JobID string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract job %s: %v", e.JobID, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// RunError aborts a run. Phase names the state the run was in.
type RunError struct {
	Phase State
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("scrape run failed while %s: %v", e.Phase, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// NothingScraped reports whether the run failed before any card was read.
func (e *RunError) NothingScraped() bool {
	return e.Phase == Initializing || e.Phase == Searching
}

// fatal separates errors that end the run from per-card failures.
func fatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, browser.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

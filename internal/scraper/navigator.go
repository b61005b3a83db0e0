package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-jobboard-scraper/internal/browser"
	"go-jobboard-scraper/internal/logger"
	"go-jobboard-scraper/internal/retry"
)

// Navigator submits a search through the site's search form.
type Navigator struct {
	site    Site
	timeout time.Duration
	retry   retry.Config
	log     logger.Logger
}

func NewNavigator(site Site, timeout time.Duration, retryCfg retry.Config, log logger.Logger) *Navigator {
	return &Navigator{site: site, timeout: timeout, retry: retryCfg, log: log}
}

// Search loads the home page, fills in title and location, submits, and
// waits for the results page. The whole sequence is retried; once the
// attempts are used up a *SearchFailedError is returned.
func (n *Navigator) Search(ctx context.Context, sess browser.Session, jobTitle, location string) error {
	cfg := n.retry
	cfg.OnRetry = func(attempt int, err error) {
		n.log.Warn("Search attempt failed, retrying",
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
	}

	n.log.Info("Searching jobs",
		logger.String("site", n.site.Name),
		logger.String("title", jobTitle),
		logger.String("location", location),
	)
	err := retry.Run(ctx, cfg, func(ctx context.Context) error {
		return n.searchOnce(ctx, sess, jobTitle, location)
	})
	if err != nil {
		browser.CaptureOnFailure(sess, n.site.Name+"-search-failed")
		return &SearchFailedError{Attempts: cfg.MaxAttempts, Err: err}
	}
	n.log.Info("Search results loaded")
	return nil
}

func (n *Navigator) searchOnce(ctx context.Context, sess browser.Session, jobTitle, location string) error {
	sel := n.site.Selectors
	if err := sess.Navigate(ctx, n.site.HomeURL); err != nil {
		return err
	}
	if err := n.checkBlocked(ctx, sess); err != nil {
		return err
	}
	if err := sess.WaitForSelector(ctx, sel.QueryInput, n.timeout); err != nil {
		return err
	}
	if err := sess.Fill(ctx, sel.QueryInput, jobTitle); err != nil {
		return err
	}
	if sel.LocationInput != "" {
		if err := sess.Fill(ctx, sel.LocationInput, location); err != nil {
			return err
		}
	}
	if err := sess.Press(ctx, "Enter"); err != nil {
		return fmt.Errorf("submit search: %w", err)
	}
	return sess.WaitForSelector(ctx, sel.ResultsMarker, n.timeout)
}

func (n *Navigator) checkBlocked(ctx context.Context, sess browser.Session) error {
	title, err := sess.Title(ctx)
	if err != nil {
		return nil
	}
	lower := strings.ToLower(title)
	for _, marker := range n.site.BlockedTitles {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return fmt.Errorf("%w: page title %q", ErrBlocked, title)
		}
	}
	return nil
}

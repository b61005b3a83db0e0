package scraper

import (
	"context"
	"fmt"
	"time"

	"go-jobboard-scraper/internal/browser"
)

// Pager asks the results page for more job cards.
type Pager interface {
	LoadMore(ctx context.Context, sess browser.Session) error
}

// ScrollPager clicks the site's "load more" button when one is on the page
// and otherwise scrolls to the bottom to trigger infinite scroll. It then
// waits Settle for new cards to render.
type ScrollPager struct {
	ButtonSelector string
	Settle         time.Duration
}

func (p ScrollPager) LoadMore(ctx context.Context, sess browser.Session) error {
	clicked := false
	if p.ButtonSelector != "" {
		buttons, err := sess.QueryAll(ctx, p.ButtonSelector)
		if err != nil {
			return fmt.Errorf("query load-more button: %w", err)
		}
		if len(buttons) > 0 {
			if err := sess.Click(ctx, buttons[0]); err != nil {
				return fmt.Errorf("click load-more button: %w", err)
			}
			clicked = true
		}
	}
	if !clicked {
		if err := sess.ScrollToBottom(ctx); err != nil {
			return fmt.Errorf("scroll results: %w", err)
		}
	}

	if p.Settle <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.Settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

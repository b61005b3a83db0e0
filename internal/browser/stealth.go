package browser

import (
	"context"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// RandomDelay waits between min and max milliseconds, or until ctx is done.
func RandomDelay(ctx context.Context, min, max int) error {
	d := min
	if max > min {
		d = rand.Intn(max-min+1) + min
	}
	timer := time.NewTimer(time.Duration(d) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// humanScroll wheels down in a few uneven steps, nudges back up like a
// reader would, then jumps to the bottom so lazy-loaded results render.
func humanScroll(ctx context.Context, page playwright.Page) error {
	for i := 0; i < 3; i++ {
		if err := page.Mouse().Wheel(0, float64(400+rand.Intn(300))); err != nil {
			return err
		}
		if err := RandomDelay(ctx, 200, 600); err != nil {
			return err
		}
	}
	if err := page.Mouse().Wheel(0, -200); err != nil {
		return err
	}
	if err := RandomDelay(ctx, 200, 400); err != nil {
		return err
	}
	_, err := page.Evaluate("window.scrollTo(0, document.body.scrollHeight)")
	return err
}

// mouseJiggle moves the pointer around the viewport before a click.
func mouseJiggle(ctx context.Context, page playwright.Page) error {
	width, height := 1000, 700
	if vp := page.ViewportSize(); vp != nil {
		width, height = vp.Width, vp.Height
	}
	for i := 0; i < 2; i++ {
		if err := page.Mouse().Move(float64(rand.Intn(width)), float64(rand.Intn(height))); err != nil {
			return err
		}
		if err := RandomDelay(ctx, 50, 150); err != nil {
			return err
		}
	}
	return nil
}

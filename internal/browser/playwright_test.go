package browser

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobboard-scraper/internal/logger"
)

// Needs a local Chromium installed with `playwright install chromium`.
func TestPlaywrightSession_Integration(t *testing.T) {
	if testing.Short() || os.Getenv("SCRAPER_BROWSER_TESTS") == "" {
		t.Skip("set SCRAPER_BROWSER_TESTS=1 to run browser tests")
	}

	opts := DefaultOptions()
	opts.Humanize = false
	opts.ScreenshotDir = t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sess, err := NewPlaywrightLauncher(opts, logger.NewNop()).Open(ctx, "")
	require.NoError(t, err)
	defer sess.Close()

	page := `data:text/html,<title>Jobs</title>` +
		`<div data-testid="JobCardButton" data-job-id="j1"><b>One</b></div>` +
		`<div data-testid="JobCardButton" data-job-id="j2"><b>Two</b></div>` +
		`<input name="q">`
	require.NoError(t, sess.Navigate(ctx, page))

	title, err := sess.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jobs", title)

	require.NoError(t, sess.WaitForSelector(ctx, `[data-testid="JobCardButton"]`, 5*time.Second))
	cards, err := sess.QueryAll(ctx, `[data-testid="JobCardButton"]`)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	id, ok := sess.Attribute(ctx, cards[1], "data-job-id")
	assert.True(t, ok)
	assert.Equal(t, "j2", id)
	_, ok = sess.Attribute(ctx, cards[1], "data-missing")
	assert.False(t, ok)

	text, ok := sess.TextOf(ctx, `[data-testid="JobCardButton"]`)
	assert.True(t, ok)
	assert.Equal(t, "One", text)
	_, ok = sess.TextOf(ctx, ".absent")
	assert.False(t, ok)

	require.NoError(t, sess.Fill(ctx, `input[name="q"]`, "golang"))
	require.NoError(t, sess.Click(ctx, cards[0]))

	err = sess.WaitForSelector(ctx, ".never", 200*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	shot, ok := sess.(Screenshotter)
	require.True(t, ok)
	path, err := shot.Screenshot("integration")
	require.NoError(t, err)
	assert.FileExists(t, path)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	_, err = sess.Title(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

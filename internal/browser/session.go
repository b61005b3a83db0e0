// Package browser owns the headless browser a scrape run drives.
//
// Orchestration code only sees the Session interface, so the same run logic
// works against Playwright or against the fixture double in browsertest.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultUserAgent is the desktop Chrome identity every session presents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Element is an opaque handle to a DOM node, only meaningful to the Session
// that returned it.
type Element any

// Launcher starts browser sessions.
type Launcher interface {
	// Open launches a browser routed through proxy ("" for a direct
	// connection) and returns a session with one page. Failures are
	// reported as *LaunchError.
	Open(ctx context.Context, proxy string) (Session, error)
}

// Session is one browser process with a single page.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// WaitForSelector blocks until selector matches or timeout elapses,
	// in which case it returns a *TimeoutError.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Attribute and Text report false when the node or value is absent.
	Attribute(ctx context.Context, el Element, name string) (string, bool)
	Text(ctx context.Context, el Element) (string, bool)
	// TextOf and HTMLOf read the first match of selector without waiting.
	TextOf(ctx context.Context, selector string) (string, bool)
	HTMLOf(ctx context.Context, selector string) (string, bool)
	Click(ctx context.Context, el Element) error
	Fill(ctx context.Context, selector, value string) error
	Press(ctx context.Context, key string) error
	ScrollToBottom(ctx context.Context) error
	Title(ctx context.Context) (string, error)
	// Close terminates the browser. Safe to call more than once.
	Close() error
}

// Screenshotter is implemented by sessions that can capture the page for debugging.
type Screenshotter interface {
	Screenshot(name string) (string, error)
}

// ErrTimeout is matched by every *TimeoutError.
var ErrTimeout = errors.New("timeout")

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("browser session closed")

// LaunchError means the browser process could not be started.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string { return fmt.Sprintf("launch browser: %v", e.Err) }
func (e *LaunchError) Unwrap() error { return e.Err }

// NavigationError means a page failed to load.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string { return fmt.Sprintf("navigate to %s: %v", e.URL, e.Err) }
func (e *NavigationError) Unwrap() error { return e.Err }

// TimeoutError means an expected element never appeared.
type TimeoutError struct {
	Selector string
	Timeout  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("wait for %q: timed out after %s", e.Selector, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// CaptureOnFailure saves a screenshot when sess supports it and returns the path.
func CaptureOnFailure(sess Session, name string) string {
	s, ok := sess.(Screenshotter)
	if !ok {
		return ""
	}
	path, err := s.Screenshot(name)
	if err != nil {
		return ""
	}
	return path
}

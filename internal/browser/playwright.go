package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"go-jobboard-scraper/internal/logger"
	"go-jobboard-scraper/internal/proxy"
)

// Options configures the Playwright launcher.
type Options struct {
	Headless          bool
	UserAgent         string
	ViewportWidth     int
	ViewportHeight    int
	ExecutablePath    string
	ExtraArgs         []string
	CookiesPath       string
	ScreenshotDir     string
	NavigationTimeout time.Duration
	// Humanize adds pointer movement before clicks and stepped scrolling.
	Humanize bool
}

// DefaultOptions returns a headless desktop configuration.
func DefaultOptions() Options {
	return Options{
		Headless:          true,
		UserAgent:         DefaultUserAgent,
		ViewportWidth:     1366,
		ViewportHeight:    768,
		NavigationTimeout: 30 * time.Second,
		Humanize:          true,
	}
}

// PlaywrightLauncher starts Chromium through playwright-go.
type PlaywrightLauncher struct {
	opts Options
	log  logger.Logger
}

func NewPlaywrightLauncher(opts Options, log logger.Logger) *PlaywrightLauncher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &PlaywrightLauncher{opts: opts, log: log}
}

// Open implements Launcher. Everything created before a failure is released.
func (l *PlaywrightLauncher) Open(ctx context.Context, proxyEndpoint string) (sess Session, err error) {
	if err := ctx.Err(); err != nil {
		return nil, &LaunchError{Err: err}
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
		Args:     append([]string{"--no-sandbox", "--disable-dev-shm-usage"}, l.opts.ExtraArgs...),
	}
	if l.opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(l.opts.ExecutablePath)
	}
	if proxyEndpoint != "" {
		ep, err := proxy.ParseEndpoint(proxyEndpoint)
		if err != nil {
			return nil, &LaunchError{Err: err}
		}
		pwProxy := &playwright.Proxy{Server: ep.Server}
		if ep.Username != "" {
			pwProxy.Username = playwright.String(ep.Username)
			pwProxy.Password = playwright.String(ep.Password)
		}
		launchOpts.Proxy = pwProxy
		l.log.Info("Using proxy", logger.String("proxy", proxy.Redact(proxyEndpoint)))
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, &LaunchError{Err: fmt.Errorf("start playwright driver: %w", err)}
	}
	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, &LaunchError{Err: fmt.Errorf("launch chromium: %w", err)}
	}
	// from here on a failure must also close the browser
	defer func() {
		if err != nil {
			_ = browser.Close()
			_ = pw.Stop()
		}
	}()

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(l.opts.UserAgent),
		Viewport: &playwright.Size{
			Width:  orDefault(l.opts.ViewportWidth, 1366),
			Height: orDefault(l.opts.ViewportHeight, 768),
		},
	})
	if err != nil {
		return nil, &LaunchError{Err: fmt.Errorf("create browser context: %w", err)}
	}

	if l.opts.CookiesPath != "" {
		cookies, err := LoadCookies(l.opts.CookiesPath)
		if err != nil {
			l.log.Warn("Could not load cookies, continuing without them", logger.Error(err))
		} else if err := browserCtx.AddCookies(toPlaywrightCookies(cookies)); err != nil {
			l.log.Warn("Could not add cookies", logger.Error(err))
		} else {
			l.log.Debug("Loaded cookies", logger.Int("count", len(cookies)))
		}
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, &LaunchError{Err: fmt.Errorf("create page: %w", err)}
	}
	page.SetDefaultNavigationTimeout(float64(l.opts.NavigationTimeout.Milliseconds()))

	return &playwrightSession{
		pw:      pw,
		browser: browser,
		page:    page,
		opts:    l.opts,
		log:     l.log,
	}, nil
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	opts    Options
	log     logger.Logger

	closeOnce sync.Once
	closed    bool
	closeErr  error
	mu        sync.Mutex
}

func (s *playwrightSession) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := s.check(ctx); err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	resp, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.timeoutFor(ctx, s.opts.NavigationTimeout).Milliseconds())),
	})
	if err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	if resp != nil && resp.Status() >= 400 {
		return &NavigationError{URL: url, Err: fmt.Errorf("http status %d", resp.Status())}
	}
	return nil
}

func (s *playwrightSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.check(ctx); err != nil {
		return &TimeoutError{Selector: selector, Timeout: timeout, Err: err}
	}
	timeout = s.timeoutFor(ctx, timeout)
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return &TimeoutError{Selector: selector, Timeout: timeout, Err: err}
	}
	return nil
}

func (s *playwrightSession) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	handles, err := s.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	out := make([]Element, len(handles))
	for i, h := range handles {
		out[i] = h
	}
	return out, nil
}

func (s *playwrightSession) Attribute(ctx context.Context, el Element, name string) (string, bool) {
	h, ok := el.(playwright.ElementHandle)
	if !ok || s.check(ctx) != nil {
		return "", false
	}
	v, err := h.GetAttribute(name)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (s *playwrightSession) Text(ctx context.Context, el Element) (string, bool) {
	h, ok := el.(playwright.ElementHandle)
	if !ok || s.check(ctx) != nil {
		return "", false
	}
	v, err := h.TextContent()
	if err != nil {
		return "", false
	}
	return v, true
}

func (s *playwrightSession) TextOf(ctx context.Context, selector string) (string, bool) {
	h, ok := s.first(ctx, selector)
	if !ok {
		return "", false
	}
	return s.Text(ctx, h)
}

func (s *playwrightSession) HTMLOf(ctx context.Context, selector string) (string, bool) {
	h, ok := s.first(ctx, selector)
	if !ok {
		return "", false
	}
	v, err := h.InnerHTML()
	if err != nil {
		return "", false
	}
	return v, true
}

func (s *playwrightSession) first(ctx context.Context, selector string) (playwright.ElementHandle, bool) {
	if s.check(ctx) != nil {
		return nil, false
	}
	h, err := s.page.QuerySelector(selector)
	if err != nil || h == nil {
		return nil, false
	}
	return h, true
}

func (s *playwrightSession) Click(ctx context.Context, el Element) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	h, ok := el.(playwright.ElementHandle)
	if !ok {
		return fmt.Errorf("click: element %T is not a playwright handle", el)
	}
	if err := h.ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("scroll card into view: %w", err)
	}
	if s.opts.Humanize {
		if err := mouseJiggle(ctx, s.page); err != nil {
			s.log.Debug("Mouse jiggle failed", logger.Error(err))
		}
	}
	return h.Click()
}

func (s *playwrightSession) Fill(ctx context.Context, selector, value string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := s.page.Locator(selector).First().Fill(value); err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	return nil
}

func (s *playwrightSession) Press(ctx context.Context, key string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return s.page.Keyboard().Press(key)
}

func (s *playwrightSession) ScrollToBottom(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if s.opts.Humanize {
		return humanScroll(ctx, s.page)
	}
	_, err := s.page.Evaluate("window.scrollTo(0, document.body.scrollHeight)")
	return err
}

func (s *playwrightSession) Title(ctx context.Context) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	return s.page.Title()
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Screenshot saves a full-page PNG under the configured directory.
func (s *playwrightSession) Screenshot(name string) (string, error) {
	if s.opts.ScreenshotDir == "" {
		return "", errors.New("screenshots disabled")
	}
	if err := os.MkdirAll(s.opts.ScreenshotDir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	name = unsafeName.ReplaceAllString(strings.TrimSpace(name), "-")
	path := filepath.Join(s.opts.ScreenshotDir, fmt.Sprintf("%s_%s.png", name, time.Now().Format("2006-01-02_15-04-05")))

	if _, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		s.log.Warn("Failed to capture screenshot", logger.Error(err))
		return "", err
	}
	s.log.Info("Screenshot saved", logger.String("path", path))
	return path, nil
}

func (s *playwrightSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if err := s.browser.Close(); err != nil {
			s.closeErr = fmt.Errorf("close browser: %w", err)
		}
		if err := s.pw.Stop(); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("stop playwright: %w", err)
		}
	})
	return s.closeErr
}

// timeoutFor shrinks d so it never outlives ctx's deadline.
func (s *playwrightSession) timeoutFor(ctx context.Context, d time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			if left < time.Millisecond {
				return time.Millisecond
			}
			return left
		}
	}
	return d
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

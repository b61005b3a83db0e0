// Package browsertest provides a browser.Launcher that plays back a fixture
// job board. Pages are rendered to HTML and selectors are answered by
// goquery, so scraping code runs against real markup without Chromium.
package browsertest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"go-jobboard-scraper/internal/browser"
)

// Selectors matching the fixture markup. They mirror the Monster job board.
const (
	HomeURL          = "https://jobs.example.test/"
	QueryInput       = `[data-testid="combobox"][name="q"]`
	LocationInput    = `[data-testid="combobox"][name="where"]`
	ResultsMarker    = ".cCDXOr"
	CardSelector     = `[data-testid="JobCardButton"]`
	CardIDAttribute  = "data-job-id"
	LoadMoreButton   = `[data-testid="svx-load-more-button"]`
	DetailTitle      = `[data-testid="jobTitle"]`
	DetailCompany    = `[data-testid="company"]`
	DetailLocation   = `[data-testid="jobDetailLocation"]`
	DetailSalary     = ".cUdlIV"
	DetailBody       = ".bYEtmI"
	DetailPostedDate = `[data-testid="jobDetailDateRecency"]`
)

// Listing is one job on the fixture board. An empty ID renders a card
// without an id attribute.
type Listing struct {
	ID          string
	Title       string
	Company     string
	Location    string
	Salary      string
	Description string
	Posted      string
	// BrokenDetail keeps the detail panel empty after the card is clicked.
	BrokenDetail bool
}

// Site describes the fixture board and the faults to inject.
type Site struct {
	Listings []Listing
	// PageSize is how many cards the results page shows before more are
	// loaded. Zero shows everything.
	PageSize int
	// LoadMore renders a "load more" button while cards remain hidden;
	// otherwise scrolling to the bottom reveals them.
	LoadMore bool
	// FailNavigations makes the first N navigations fail.
	FailNavigations int
	// ChallengeNavigations serves a bot-wall page for the first N navigations.
	ChallengeNavigations int
	// NoResultsMarker leaves the results marker out of the results page.
	NoResultsMarker bool
	// LaunchErr makes every Open fail with a *browser.LaunchError.
	LaunchErr error
	// StaleDetailReads keeps the previous detail view on screen for the
	// first N-1 text or HTML reads after a card click; the Nth read sees the
	// clicked card.
	StaleDetailReads int
}

// Launcher opens Sessions over Site.
type Launcher struct {
	Site *Site

	mu       sync.Mutex
	proxies  []string
	sessions []*Session
	navs     int
}

func NewLauncher(site *Site) *Launcher {
	return &Launcher{Site: site}
}

func (l *Launcher) Open(ctx context.Context, proxy string) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.proxies = append(l.proxies, proxy)
	if l.Site.LaunchErr != nil {
		return nil, &browser.LaunchError{Err: l.Site.LaunchErr}
	}
	if err := ctx.Err(); err != nil {
		return nil, &browser.LaunchError{Err: err}
	}
	s := &Session{site: l.Site, launcher: l, page: pageBlank, active: -1, filled: map[string]string{}}
	l.sessions = append(l.sessions, s)
	return s, nil
}

// Proxies lists the proxy passed to each Open call.
func (l *Launcher) Proxies() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.proxies...)
}

// Sessions lists every session opened so far.
func (l *Launcher) Sessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.sessions...)
}

// nextNavigation counts navigations across sessions so injected faults
// persist over retries.
func (l *Launcher) nextNavigation() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.navs++
	return l.navs
}

type pageKind int

const (
	pageBlank pageKind = iota
	pageHome
	pageChallenge
	pageResults
)

// Session is the fixture browser.Session.
type Session struct {
	site     *Site
	launcher *Launcher

	mu         sync.Mutex
	page       pageKind
	query      string
	where      string
	filled     map[string]string
	visible    int
	active     int // index into Listings of the open detail view, -1 none
	pending    int // card whose detail view replaces active after staleReads
	staleReads int
	doc        *goquery.Document
	closed     bool
	closeCalls int
	clicks     int
}

var _ browser.Session = (*Session)(nil)

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return &browser.NavigationError{URL: url, Err: err}
	}
	n := s.launcher.nextNavigation()
	if n <= s.site.FailNavigations {
		return &browser.NavigationError{URL: url, Err: errors.New("net::ERR_CONNECTION_RESET")}
	}
	s.filled = map[string]string{}
	s.active = -1
	s.staleReads = 0
	if n <= s.site.FailNavigations+s.site.ChallengeNavigations {
		s.page = pageChallenge
	} else {
		s.page = pageHome
	}
	return s.render()
}

func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return &browser.TimeoutError{Selector: selector, Timeout: timeout, Err: err}
	}
	if s.doc.Find(selector).Length() == 0 {
		return &browser.TimeoutError{Selector: selector, Timeout: timeout, Err: browser.ErrTimeout}
	}
	return nil
}

func (s *Session) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var out []browser.Element
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, sel)
	})
	return out, nil
}

func (s *Session) Attribute(_ context.Context, el browser.Element, name string) (string, bool) {
	sel, ok := el.(*goquery.Selection)
	if !ok {
		return "", false
	}
	v, ok := sel.Attr(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s *Session) Text(_ context.Context, el browser.Element) (string, bool) {
	sel, ok := el.(*goquery.Selection)
	if !ok || sel.Length() == 0 {
		return "", false
	}
	return sel.Text(), true
}

func (s *Session) TextOf(ctx context.Context, selector string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready(ctx) != nil {
		return "", false
	}
	if s.tickStale() != nil {
		return "", false
	}
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Text(), true
}

func (s *Session) HTMLOf(ctx context.Context, selector string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready(ctx) != nil {
		return "", false
	}
	if s.tickStale() != nil {
		return "", false
	}
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	h, err := sel.Html()
	if err != nil {
		return "", false
	}
	return h, true
}

func (s *Session) Click(ctx context.Context, el browser.Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	sel, ok := el.(*goquery.Selection)
	if !ok {
		return fmt.Errorf("click: unexpected element %T", el)
	}
	s.clicks++

	if sel.Is(LoadMoreButton) {
		s.revealMore()
		return s.render()
	}
	idx, ok := sel.Attr("data-fixture-index")
	if !ok {
		return errors.New("click: element is not clickable")
	}
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 || i >= len(s.site.Listings) {
		return fmt.Errorf("click: bad fixture index %q", idx)
	}
	if s.site.StaleDetailReads > 0 && s.active >= 0 {
		s.pending = i
		s.staleReads = s.site.StaleDetailReads
		return nil
	}
	s.active = i
	return s.render()
}

func (s *Session) Fill(ctx context.Context, selector, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	if s.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("fill %q: no such element", selector)
	}
	s.filled[selector] = value
	return nil
}

func (s *Session) Press(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	if key != "Enter" || s.page != pageHome {
		return nil
	}
	s.query = s.filled[QueryInput]
	s.where = s.filled[LocationInput]
	s.page = pageResults
	s.visible = s.pageSize()
	return s.render()
}

func (s *Session) ScrollToBottom(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	if s.page == pageResults && !s.site.LoadMore {
		s.revealMore()
		return s.render()
	}
	return nil
}

func (s *Session) Title(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	return s.doc.Find("title").Text(), nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closeCalls++
	return nil
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

// Clicks counts every Click call, cards and buttons alike.
func (s *Session) Clicks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clicks
}

// Search returns the query and location submitted from the home page.
func (s *Session) Search() (query, where string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, s.where
}

func (s *Session) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return browser.ErrClosed
	}
	if s.doc == nil {
		return s.render()
	}
	return nil
}

// tickStale counts one detail read and swaps in the pending detail view
// once the stale reads are used up.
func (s *Session) tickStale() error {
	if s.staleReads == 0 {
		return nil
	}
	s.staleReads--
	if s.staleReads > 0 {
		return nil
	}
	s.active = s.pending
	return s.render()
}

func (s *Session) pageSize() int {
	if s.site.PageSize <= 0 || s.site.PageSize > len(s.site.Listings) {
		return len(s.site.Listings)
	}
	return s.site.PageSize
}

func (s *Session) revealMore() {
	s.visible += s.pageSize()
	if s.visible > len(s.site.Listings) {
		s.visible = len(s.site.Listings)
	}
}

type cardView struct {
	Index int
	ID    string
	Title string
}

type pageView struct {
	Title       string
	Home        bool
	Challenge   bool
	Results     bool
	Marker      bool
	Cards       []cardView
	HasMore     bool
	Detail      *Listing
	ShowDetails bool
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html><head><title>{{.Title}}</title></head><body>
{{if .Challenge}}<div id="challenge-stage">Checking your browser</div>{{end}}
{{if .Home}}<form role="search">
<input data-testid="combobox" name="q" value="">
<input data-testid="combobox" name="where" value="">
</form>{{end}}
{{if .Results}}<section{{if .Marker}} class="cCDXOr"{{end}} id="results">
{{range .Cards}}<div data-testid="JobCardButton" data-fixture-index="{{.Index}}"{{if .ID}} data-job-id="{{.ID}}"{{end}}><h3>{{.Title}}</h3></div>
{{end}}</section>
{{if .HasMore}}<button data-testid="svx-load-more-button">Load more</button>{{end}}
<aside id="detail">{{if .ShowDetails}}{{with .Detail}}
<h2 data-testid="jobTitle">{{.Title}}</h2>
<a data-testid="company">{{.Company}}</a>
<span data-testid="jobDetailLocation">{{.Location}}</span>
{{if .Salary}}<span class="cUdlIV">{{.Salary}}</span>{{end}}
{{if .Description}}<div class="bYEtmI"><p>{{.Description}}</p></div>{{end}}
{{if .Posted}}<span data-testid="jobDetailDateRecency">{{.Posted}}</span>{{end}}
{{end}}{{end}}</aside>{{end}}
</body></html>`))

func (s *Session) render() error {
	v := pageView{Title: "Job Search | Example Jobs"}
	switch s.page {
	case pageHome:
		v.Home = true
	case pageChallenge:
		v.Title = "Just a moment..."
		v.Challenge = true
	case pageResults:
		v.Results = true
		v.Marker = !s.site.NoResultsMarker
		v.Title = fmt.Sprintf("%s Jobs in %s | Example Jobs", s.query, s.where)
		for i := 0; i < s.visible; i++ {
			l := s.site.Listings[i]
			v.Cards = append(v.Cards, cardView{Index: i, ID: l.ID, Title: l.Title})
		}
		v.HasMore = s.site.LoadMore && s.visible < len(s.site.Listings)
		if s.active >= 0 {
			l := s.site.Listings[s.active]
			v.Detail = &l
			v.ShowDetails = !l.BrokenDetail
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, v); err != nil {
		return fmt.Errorf("render fixture page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(buf.String()))
	if err != nil {
		return fmt.Errorf("parse fixture page: %w", err)
	}
	s.doc = doc
	return nil
}

package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"go-jobboard-scraper/internal/browser"
	"go-jobboard-scraper/internal/dedup"
	"go-jobboard-scraper/internal/logger"
	"go-jobboard-scraper/internal/models"
	"go-jobboard-scraper/internal/proxy"
	"go-jobboard-scraper/internal/retry"
	"go-jobboard-scraper/internal/validator"
)

// State is a phase of a scrape run.
type State int

const (
	Idle State = iota
	Initializing
	Searching
	Collecting
	Extracting
	Draining
	Closed
	Failed
)

var stateNames = [...]string{
	Idle:         "idle",
	Initializing: "initializing",
	Searching:    "searching",
	Collecting:   "collecting",
	Extracting:   "extracting",
	Draining:     "draining",
	Closed:       "closed",
	Failed:       "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Options tune a run. Zero LoadMoreSettle and CardInterval disable the
// waits; other zero values fall back to DefaultOptions.
type Options struct {
	SearchTimeout time.Duration
	DetailTimeout time.Duration
	Retry         retry.Config
	// LoadMoreAttempts is how many consecutive empty load-more rounds end
	// the run.
	LoadMoreAttempts int
	LoadMoreSettle   time.Duration
	// CardInterval is the minimum gap between two card clicks.
	CardInterval      time.Duration
	DefaultMaxRecords int
	Now               func() time.Time
}

func DefaultOptions() Options {
	return Options{
		SearchTimeout:     15 * time.Second,
		DetailTimeout:     10 * time.Second,
		Retry:             retry.DefaultConfig(),
		LoadMoreAttempts:  3,
		LoadMoreSettle:    1500 * time.Millisecond,
		CardInterval:      500 * time.Millisecond,
		DefaultMaxRecords: 100,
		Now:               time.Now,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = def.SearchTimeout
	}
	if o.DetailTimeout <= 0 {
		o.DetailTimeout = def.DetailTimeout
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = def.Retry
	}
	if o.LoadMoreAttempts <= 0 {
		o.LoadMoreAttempts = def.LoadMoreAttempts
	}
	if o.LoadMoreSettle < 0 {
		o.LoadMoreSettle = 0
	}
	if o.DefaultMaxRecords <= 0 {
		o.DefaultMaxRecords = def.DefaultMaxRecords
	}
	if o.Now == nil {
		o.Now = def.Now
	}
	return o
}

// Stats summarize one run.
type Stats struct {
	RunID            string        `json:"run_id"`
	Proxy            string        `json:"proxy,omitempty"`
	CardsSeen        int           `json:"cards_seen"`
	Processed        int           `json:"processed"`
	Extracted        int           `json:"extracted"`
	Rejected         int           `json:"rejected"`
	Failed           int           `json:"failed"`
	LoadMoreAttempts int           `json:"load_more_attempts"`
	Duration         time.Duration `json:"duration"`
}

// Observer receives run events, e.g. for metrics. Methods must not block.
type Observer interface {
	RunStarted()
	RunFinished(stats Stats, err error)
	RecordRejected(reason string)
}

// Orchestrator runs one scrape at a time against a single site.
type Orchestrator struct {
	launcher  browser.Launcher
	rotator   *proxy.Rotator
	site      Site
	opts      Options
	navigator *Navigator
	extractor *Extractor
	pager     Pager
	validator *validator.Validator
	observer  Observer
	log       logger.Logger
}

var _ JobScraper = (*Orchestrator)(nil)

// NewOrchestrator wires a run pipeline for site. rotator may be nil, in
// which case every session connects directly.
func NewOrchestrator(launcher browser.Launcher, rotator *proxy.Rotator, site Site, opts Options, log logger.Logger) *Orchestrator {
	opts = opts.withDefaults()
	if rotator == nil {
		rotator = proxy.New(nil)
	}
	return &Orchestrator{
		launcher:  launcher,
		rotator:   rotator,
		site:      site,
		opts:      opts,
		navigator: NewNavigator(site, opts.SearchTimeout, opts.Retry, log),
		extractor: NewExtractor(site, opts.DetailTimeout, opts.CardInterval, log),
		pager:     ScrollPager{ButtonSelector: site.Selectors.LoadMore, Settle: opts.LoadMoreSettle},
		validator: validator.New(opts.Now),
		log:       log,
	}
}

// WithPager replaces the default scroll/button pager.
func (o *Orchestrator) WithPager(p Pager) *Orchestrator {
	o.pager = p
	return o
}

// WithObserver attaches obs to every following run.
func (o *Orchestrator) WithObserver(obs Observer) *Orchestrator {
	o.observer = obs
	return o
}

// run is the state of one ScrapeJobs call.
type run struct {
	id        string
	state     State
	processed *dedup.Set
	jobs      []models.JobRecord
	stats     Stats
	log       logger.Logger
}

func (r *run) enter(s State) {
	r.log.Debug("Run state changed",
		logger.String("from", r.state.String()),
		logger.String("to", s.String()),
	)
	r.state = s
}

// ScrapeJobs searches for jobTitle in location and returns at most
// maxRecords validated jobs in discovery order. maxRecords <= 0 means the
// configured default.
//
// Launch and search failures are returned as *RunError with no jobs. If the
// browser dies or ctx ends mid-run, the jobs gathered so far are returned
// together with a *RunError. Per-card failures only lower the yield.
func (o *Orchestrator) ScrapeJobs(ctx context.Context, jobTitle, location string, maxRecords int) (result *Result, err error) {
	if maxRecords <= 0 {
		maxRecords = o.opts.DefaultMaxRecords
	}
	started := o.opts.Now()
	r := &run{
		id:        uuid.NewString(),
		state:     Idle,
		processed: dedup.NewSet(),
		jobs:      make([]models.JobRecord, 0, min(maxRecords, 64)),
	}
	r.stats.RunID = r.id
	r.log = o.log.With(logger.String("run_id", r.id), logger.String("site", o.site.Name))
	if o.observer != nil {
		o.observer.RunStarted()
	}

	defer func() {
		r.stats.Duration = o.opts.Now().Sub(started)
		r.stats.Processed = r.processed.Len()
		result = &Result{Jobs: r.jobs, Stats: r.stats}
		if o.observer != nil {
			o.observer.RunFinished(r.stats, err)
		}
		if err != nil {
			r.log.Error("Scrape run failed",
				logger.Error(err),
				logger.Int("jobs", len(r.jobs)),
			)
			return
		}
		r.log.Info("Scrape run finished",
			logger.Int("jobs", len(r.jobs)),
			logger.Int("cards_seen", r.stats.CardsSeen),
			logger.Int("processed", r.stats.Processed),
			logger.Int("rejected", r.stats.Rejected),
			logger.Int("failed", r.stats.Failed),
			logger.Duration("duration", r.stats.Duration),
		)
	}()

	r.enter(Initializing)
	endpoint := o.rotator.Next()
	r.stats.Proxy = proxy.Redact(endpoint)
	sess, err := o.launcher.Open(ctx, endpoint)
	if err != nil {
		r.enter(Failed)
		return nil, &RunError{Phase: Initializing, Err: err}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.log.Warn("Closing browser session failed", logger.Error(cerr))
		}
		if r.state != Failed {
			r.enter(Closed)
		}
	}()

	r.enter(Searching)
	if err := o.navigator.Search(ctx, sess, jobTitle, location); err != nil {
		r.enter(Failed)
		return nil, &RunError{Phase: Searching, Err: err}
	}

	if err := o.collect(ctx, sess, r, maxRecords); err != nil {
		phase := r.state
		r.enter(Failed)
		return nil, &RunError{Phase: phase, Err: err}
	}
	r.enter(Draining)
	return nil, nil
}

// collect alternates between Collecting and Extracting until the cap is
// reached or the page stops yielding new cards.
func (o *Orchestrator) collect(ctx context.Context, sess browser.Session, r *run, maxRecords int) error {
	emptyRounds := 0
	for len(r.jobs) < maxRecords {
		r.enter(Collecting)
		cards, err := o.extractor.CollectUnprocessed(ctx, sess, r.processed)
		if err != nil {
			if fatal(ctx, err) {
				return err
			}
			r.log.Warn("Collecting job cards failed", logger.Error(err))
			cards = nil
		}

		if len(cards) == 0 {
			if emptyRounds >= o.opts.LoadMoreAttempts {
				r.log.Info("No more job cards",
					logger.Int("load_more_attempts", r.stats.LoadMoreAttempts),
				)
				return nil
			}
			emptyRounds++
			r.stats.LoadMoreAttempts++
			if err := o.pager.LoadMore(ctx, sess); err != nil {
				if fatal(ctx, err) {
					return err
				}
				r.log.Warn("Loading more results failed", logger.Error(err))
			}
			continue
		}
		emptyRounds = 0
		r.stats.CardsSeen += len(cards)

		r.enter(Extracting)
		if err := o.extract(ctx, sess, r, cards, maxRecords); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) extract(ctx context.Context, sess browser.Session, r *run, cards []Card, maxRecords int) error {
	for _, card := range cards {
		if len(r.jobs) >= maxRecords {
			return nil
		}
		raw, err := o.extractor.ExtractOne(ctx, sess, card)
		r.processed.Add(card.ID)
		if err != nil {
			if fatal(ctx, err) {
				return err
			}
			r.stats.Failed++
			r.log.Warn("Extracting job failed",
				logger.String("job_id", card.ID),
				logger.Error(err),
			)
			continue
		}
		r.stats.Extracted++

		job, err := o.validator.Validate(*raw)
		if err != nil {
			r.stats.Rejected++
			reason := "invalid"
			var verr *validator.ValidationError
			if errors.As(err, &verr) {
				reason = "missing_field"
			}
			if o.observer != nil {
				o.observer.RecordRejected(reason)
			}
			r.log.Warn("Rejected job record",
				logger.String("job_id", card.ID),
				logger.Error(err),
			)
			continue
		}
		r.jobs = append(r.jobs, job)
	}
	return nil
}

// Load envs from .env
// Load YAML config
// Apply env overrides and defaults
// Validate config

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go-jobboard-scraper/internal/browser"
	"go-jobboard-scraper/internal/logger"
	"go-jobboard-scraper/internal/proxy"
	"go-jobboard-scraper/internal/retry"
	"go-jobboard-scraper/internal/scraper"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "configs/config.yaml"

// MaxRecordsLimit is the largest maxRecords a caller may request.
const MaxRecordsLimit = 500

type Config struct {
	// Proxies are rotated round-robin, one per run. Empty means direct.
	Proxies  []string       `yaml:"proxies"`
	Site     SiteConfig     `yaml:"site"`
	Browser  BrowserConfig  `yaml:"browser"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

type SiteConfig struct {
	// Selectors override the built-in Monster selectors field by field.
	Selectors scraper.Selectors `yaml:"selectors"`
}

type BrowserConfig struct {
	Headless          bool          `yaml:"headless"`
	ExecutablePath    string        `yaml:"executable_path"`
	UserAgent         string        `yaml:"user_agent"`
	CookiesPath       string        `yaml:"cookies_path"`
	ScreenshotDir     string        `yaml:"screenshot_dir"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	Humanize          bool          `yaml:"humanize"`
}

type ScrapeConfig struct {
	SearchTimeout     time.Duration `yaml:"search_timeout"`
	DetailTimeout     time.Duration `yaml:"detail_timeout"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	LoadMoreAttempts  int           `yaml:"load_more_attempts"`
	LoadMoreSettle    time.Duration `yaml:"load_more_settle"`
	CardInterval      time.Duration `yaml:"card_interval"`
	DefaultMaxRecords int           `yaml:"default_max_records"`
	// RunTimeout bounds one whole run. Zero means no bound.
	RunTimeout time.Duration `yaml:"run_timeout"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	b := browser.DefaultOptions()
	s := scraper.DefaultOptions()
	return &Config{
		Browser: BrowserConfig{
			Headless:          b.Headless,
			UserAgent:         b.UserAgent,
			CookiesPath:       ".cookies/monster.json",
			ScreenshotDir:     "screenshots",
			NavigationTimeout: b.NavigationTimeout,
			Humanize:          b.Humanize,
		},
		Scrape: ScrapeConfig{
			SearchTimeout:     s.SearchTimeout,
			DetailTimeout:     s.DetailTimeout,
			RetryAttempts:     s.Retry.MaxAttempts,
			RetryDelay:        s.Retry.Delay,
			LoadMoreAttempts:  s.LoadMoreAttempts,
			LoadMoreSettle:    s.LoadMoreSettle,
			CardInterval:      s.CardInterval,
			DefaultMaxRecords: s.DefaultMaxRecords,
			RunTimeout:        10 * time.Minute,
		},
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads .env, then the YAML file at path, then env overrides. A missing
// file is not an error; defaults are used instead.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	//Override with env vars
	if v, ok := os.LookupEnv("SCRAPER_PROXIES"); ok {
		c.Proxies = splitList(v)
	}
	if v := os.Getenv("SCRAPER_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SCRAPER_HEADLESS: %w", err)
		}
		c.Browser.Headless = b
	}
	if v := os.Getenv("SCRAPER_BROWSER_PATH"); v != "" {
		c.Browser.ExecutablePath = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects values no run could work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Scrape.RetryAttempts < 1 {
		errs = append(errs, errors.New("scrape.retry_attempts must be at least 1"))
	}
	if c.Scrape.DefaultMaxRecords < 1 || c.Scrape.DefaultMaxRecords > MaxRecordsLimit {
		errs = append(errs, fmt.Errorf("scrape.default_max_records must be between 1 and %d", MaxRecordsLimit))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	for _, p := range c.Proxies {
		if _, err := proxy.ParseEndpoint(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BrowserOptions maps the browser section onto the Playwright launcher.
func (c *Config) BrowserOptions() browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = c.Browser.Headless
	opts.ExecutablePath = c.Browser.ExecutablePath
	if c.Browser.UserAgent != "" {
		opts.UserAgent = c.Browser.UserAgent
	}
	opts.CookiesPath = c.Browser.CookiesPath
	opts.ScreenshotDir = c.Browser.ScreenshotDir
	if c.Browser.NavigationTimeout > 0 {
		opts.NavigationTimeout = c.Browser.NavigationTimeout
	}
	opts.Humanize = c.Browser.Humanize
	return opts
}

// ScrapeOptions maps the scrape section onto the orchestrator.
func (c *Config) ScrapeOptions() scraper.Options {
	opts := scraper.DefaultOptions()
	opts.SearchTimeout = c.Scrape.SearchTimeout
	opts.DetailTimeout = c.Scrape.DetailTimeout
	opts.Retry = retry.Config{
		MaxAttempts: c.Scrape.RetryAttempts,
		Delay:       c.Scrape.RetryDelay,
		Multiplier:  1,
	}
	opts.LoadMoreAttempts = c.Scrape.LoadMoreAttempts
	opts.LoadMoreSettle = c.Scrape.LoadMoreSettle
	opts.CardInterval = c.Scrape.CardInterval
	opts.DefaultMaxRecords = c.Scrape.DefaultMaxRecords
	return opts
}

func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Log.Level, Development: c.Log.Development}
}

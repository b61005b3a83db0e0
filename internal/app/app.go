// Package app wires configuration into the components both binaries run.
package app

import (
	"context"
	"fmt"

	"go-jobboard-scraper/internal/browser"
	"go-jobboard-scraper/internal/config"
	"go-jobboard-scraper/internal/database"
	"go-jobboard-scraper/internal/logger"
	"go-jobboard-scraper/internal/proxy"
	"go-jobboard-scraper/internal/scraper"
	"go-jobboard-scraper/internal/scraper/monster"
)

// NewLogger builds the process logger, forcing debug level when debug is set.
func NewLogger(cfg *config.Config, debug bool) (logger.Logger, error) {
	lc := cfg.LoggerConfig()
	if debug {
		lc.Level = "debug"
		lc.Development = true
	}
	return logger.New(lc)
}

// NewScraper builds a Monster orchestrator driving Playwright. obs may be nil.
func NewScraper(cfg *config.Config, obs scraper.Observer, log logger.Logger) *scraper.Orchestrator {
	launcher := browser.NewPlaywrightLauncher(cfg.BrowserOptions(), log)
	rotator := proxy.New(cfg.Proxies)
	site := monster.Site(cfg.Site.Selectors)

	orch := scraper.NewOrchestrator(launcher, rotator, site, cfg.ScrapeOptions(), log)
	if obs != nil {
		orch.WithObserver(obs)
	}
	log.Info("Scraper ready",
		logger.String("site", site.Name),
		logger.Int("proxies", rotator.Len()),
		logger.Bool("headless", cfg.Browser.Headless),
	)
	return orch
}

// OpenRepository connects to DATABASE_URL and makes sure the schema exists.
// It returns nil, nil when no database is configured.
func OpenRepository(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.Repository, error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, scraped jobs will not be saved")
		return nil, nil
	}
	repo, err := database.ConnectDB(ctx, cfg.Database.URL, monster.Name)
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("prepare database: %w", err)
	}
	log.Info("Connected to database")
	return repo, nil
}

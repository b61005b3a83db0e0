package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go-jobboard-scraper/internal/app"
	"go-jobboard-scraper/internal/config"
	"go-jobboard-scraper/internal/logger"
	"go-jobboard-scraper/internal/models"
)

var (
	cfgFile string
	debug   bool
)

func main() {
	root := &cobra.Command{
		Use:           "scraper",
		Short:         "Scrape job listings from Monster",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "path to the YAML config")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.AddCommand(newRunCmd(), newMigrateCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type runFlags struct {
	title    string
	location string
	max      int
	owner    string
	save     bool
	outDir   string
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one search and write the jobs to a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "job title to search for")
	cmd.Flags().StringVarP(&f.location, "location", "l", "", "location to search in")
	cmd.Flags().IntVarP(&f.max, "max", "n", 0, "maximum number of jobs (1-500, default from config)")
	cmd.Flags().StringVar(&f.owner, "owner", "", "owner id the jobs are saved under")
	cmd.Flags().BoolVar(&f.save, "save", false, "upsert the jobs into DATABASE_URL")
	cmd.Flags().StringVar(&f.outDir, "out", "logs", "directory for the JSON result file")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func run(ctx context.Context, f runFlags) error {
	if f.max < 0 || f.max > config.MaxRecordsLimit {
		return fmt.Errorf("--max must be between 1 and %d", config.MaxRecordsLimit)
	}
	if f.save && f.owner == "" {
		return errors.New("--save needs --owner")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	log, err := app.NewLogger(cfg, debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Scrape.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Scrape.RunTimeout)
		defer cancel()
	}

	orch := app.NewScraper(cfg, nil, log)
	result, runErr := orch.ScrapeJobs(ctx, f.title, f.location, f.max)
	if runErr != nil && len(result.Jobs) == 0 {
		return runErr
	}
	if runErr != nil {
		log.Warn("Run stopped early, keeping partial results", logger.Error(runErr))
	}

	path, err := saveJobs(f.outDir, result.Jobs, time.Now())
	if err != nil {
		return err
	}
	if path != "" {
		log.Info("Results saved", logger.String("path", path))
	}

	if f.save {
		if err := persist(ctx, cfg, f.owner, result.Jobs, log); err != nil {
			return err
		}
	}
	fmt.Printf("scraped %d jobs\n", len(result.Jobs))
	return nil
}

func persist(ctx context.Context, cfg *config.Config, owner string, jobs []models.JobRecord, log logger.Logger) error {
	// the run deadline may have been spent on scraping
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	repo, err := app.OpenRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	if repo == nil {
		return errors.New("--save needs DATABASE_URL")
	}
	defer repo.Close()

	summary, err := repo.UpsertJobs(ctx, owner, jobs)
	if err != nil {
		return err
	}
	log.Info("Jobs saved",
		logger.String("owner", owner),
		logger.Int("inserted", summary.Inserted),
		logger.Int("updated", summary.Updated),
	)
	return nil
}

// saveJobs writes job-search-YYYY-MM-DD.json under dir and returns its path.
// Nothing is written for an empty result.
func saveJobs(dir string, jobs []models.JobRecord, now time.Time) (string, error) {
	if len(jobs) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	filename := fmt.Sprintf("job-search-%s.json", now.Format("2006-01-02"))
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(models.ScrapedJobs{Jobs: jobs}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal jobs: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the jobs table in DATABASE_URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			log, err := app.NewLogger(cfg, debug)
			if err != nil {
				return err
			}
			repo, err := app.OpenRepository(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			if repo == nil {
				return errors.New("DATABASE_URL is not set")
			}
			repo.Close()
			fmt.Println("schema ready")
			return nil
		},
	}
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-jobboard-scraper/internal/models"
)

// ErrOwnerRequired is returned when a write has no owner to key on.
var ErrOwnerRequired = errors.New("owner id is required")

type Repository struct {
	db     *pgxpool.Pool
	source string
}

// ConnectDB opens a pool and pings it. source tags every row written,
// e.g. "monster".
func ConnectDB(ctx context.Context, connString, source string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour

	// Transaction-mode poolers (PgBouncer) reject cached prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Repository{db: pool, source: source}, nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS scraped_jobs (
	id               BIGSERIAL PRIMARY KEY,
	owner_id         TEXT NOT NULL,
	external_id      TEXT NOT NULL,
	source           TEXT NOT NULL,
	title            TEXT NOT NULL,
	company_name     TEXT NOT NULL,
	location         TEXT NOT NULL,
	salary_text      TEXT,
	description_html TEXT,
	posted_at        DATE,
	scraped_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (owner_id, external_id)
)`

// EnsureSchema creates the jobs table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ---------------- JOB OPERATIONS ----------------

const upsertJob = `
	INSERT INTO scraped_jobs (owner_id, external_id, source, title, company_name, location, salary_text, description_html, posted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')::date)
	ON CONFLICT (owner_id, external_id)
	DO UPDATE SET title = EXCLUDED.title,
		company_name = EXCLUDED.company_name,
		location = EXCLUDED.location,
		salary_text = EXCLUDED.salary_text,
		description_html = EXCLUDED.description_html,
		posted_at = COALESCE(EXCLUDED.posted_at, scraped_jobs.posted_at),
		updated_at = now()
	RETURNING (xmax = 0) AS inserted`

// UpsertJobs saves jobs for owner keyed on (owner, externalId). Jobs already
// stored are updated in place, so re-running a search is harmless.
func (r *Repository) UpsertJobs(ctx context.Context, ownerID string, jobs []models.JobRecord) (models.UpsertSummary, error) {
	var summary models.UpsertSummary
	if ownerID == "" {
		return summary, ErrOwnerRequired
	}
	if len(jobs) == 0 {
		return summary, nil
	}

	batch := &pgx.Batch{}
	for _, j := range jobs {
		batch.Queue(upsertJob, ownerID, j.ExternalID, r.source, j.Title, j.CompanyName, j.Location,
			j.SalaryText, j.DescriptionHTML, j.PostedAt)
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		defer results.Close()
		for _, j := range jobs {
			var inserted bool
			if err := results.QueryRow().Scan(&inserted); err != nil {
				return fmt.Errorf("upsert job %s: %w", j.ExternalID, err)
			}
			if inserted {
				summary.Inserted++
			} else {
				summary.Updated++
			}
		}
		return results.Close()
	})
	if err != nil {
		return models.UpsertSummary{}, fmt.Errorf("failed to save jobs: %w", err)
	}
	return summary, nil
}

// ListJobs returns owner's most recently updated jobs first.
func (r *Repository) ListJobs(ctx context.Context, ownerID string, limit int) ([]models.StoredJob, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id::text, owner_id, external_id, source, title, company_name, location,
			salary_text, description_html, COALESCE(to_char(posted_at, 'YYYY-MM-DD'), ''), scraped_at, updated_at
		FROM scraped_jobs
		WHERE owner_id = $1
		ORDER BY updated_at DESC, id DESC
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.StoredJob, error) {
		var j models.StoredJob
		err := row.Scan(&j.ID, &j.OwnerID, &j.ExternalID, &j.Source, &j.Title, &j.CompanyName, &j.Location,
			&j.SalaryText, &j.DescriptionHTML, &j.PostedAt, &j.ScrapedAt, &j.UpdatedAt)
		return j, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan jobs: %w", err)
	}
	return jobs, nil
}

// DeleteJobs removes every job stored for owner and reports how many rows went.
func (r *Repository) DeleteJobs(ctx context.Context, ownerID string) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM scraped_jobs WHERE owner_id = $1", ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

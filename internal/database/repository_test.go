package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobboard-scraper/internal/models"
)

func connectTestDB(t *testing.T) *Repository {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := ConnectDB(ctx, url, "test")
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func strPtr(s string) *string { return &s }

func TestRepository_UpsertJobs(t *testing.T) {
	repo := connectTestDB(t)
	ctx := context.Background()
	owner := "test-" + uuid.NewString()
	t.Cleanup(func() { _, _ = repo.DeleteJobs(context.Background(), owner) })

	jobs := []models.JobRecord{
		{ExternalID: "j1", Title: "Go Developer", CompanyName: "Acme", Location: "Remote", SalaryText: strPtr("$120k"), PostedAt: "2026-03-12"},
		{ExternalID: "j2", Title: "SRE", CompanyName: "Globex", Location: "Berlin"},
	}
	summary, err := repo.UpsertJobs(ctx, owner, jobs)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertSummary{Inserted: 2}, summary)

	jobs[0].Title = "Senior Go Developer"
	summary, err = repo.UpsertJobs(ctx, owner, jobs[:1])
	require.NoError(t, err)
	assert.Equal(t, models.UpsertSummary{Updated: 1}, summary)

	stored, err := repo.ListJobs(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	byID := map[string]models.StoredJob{}
	for _, s := range stored {
		byID[s.ExternalID] = s
	}
	assert.Equal(t, "Senior Go Developer", byID["j1"].Title)
	assert.Equal(t, "2026-03-12", byID["j1"].PostedAt)
	require.NotNil(t, byID["j1"].SalaryText)
	assert.Nil(t, byID["j2"].SalaryText)
	assert.Equal(t, "", byID["j2"].PostedAt)
	assert.Equal(t, "test", byID["j2"].Source)
}

func TestRepository_UpsertJobsRequiresOwner(t *testing.T) {
	repo := &Repository{}
	_, err := repo.UpsertJobs(context.Background(), "", []models.JobRecord{{ExternalID: "j1"}})
	assert.ErrorIs(t, err, ErrOwnerRequired)

	summary, err := repo.UpsertJobs(context.Background(), "owner", nil)
	require.NoError(t, err)
	assert.Zero(t, summary)
}

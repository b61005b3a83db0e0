package monster_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobboard-scraper/internal/browser/browsertest"
	"go-jobboard-scraper/internal/logger"
	"go-jobboard-scraper/internal/retry"
	"go-jobboard-scraper/internal/scraper"
	"go-jobboard-scraper/internal/scraper/monster"
)

func TestSite_SelectorsMatchFixtureMarkup(t *testing.T) {
	s := monster.Selectors
	assert.Equal(t, browsertest.QueryInput, s.QueryInput)
	assert.Equal(t, browsertest.LocationInput, s.LocationInput)
	assert.Equal(t, browsertest.ResultsMarker, s.ResultsMarker)
	assert.Equal(t, browsertest.CardSelector, s.Card)
	assert.Equal(t, browsertest.CardIDAttribute, s.CardIDAttribute)
	assert.Equal(t, browsertest.LoadMoreButton, s.LoadMore)
	assert.Equal(t, browsertest.DetailTitle, s.DetailTitle)
	assert.Equal(t, browsertest.DetailCompany, s.DetailCompany)
	assert.Equal(t, browsertest.DetailLocation, s.DetailLocation)
	assert.Equal(t, browsertest.DetailSalary, s.DetailSalary)
	assert.Equal(t, browsertest.DetailBody, s.DetailDescription)
	assert.Equal(t, browsertest.DetailPostedDate, s.DetailPostedDate)
}

func TestSite_Overrides(t *testing.T) {
	site := monster.Site(scraper.Selectors{DetailSalary: ".salary"})

	assert.Equal(t, monster.Name, site.Name)
	assert.Equal(t, monster.HomeURL, site.HomeURL)
	assert.Equal(t, ".salary", site.Selectors.DetailSalary)
	assert.Equal(t, monster.Selectors.DetailTitle, site.Selectors.DetailTitle)
	assert.NotEmpty(t, site.BlockedTitles)
}

func TestSite_ScrapesFixtureBoard(t *testing.T) {
	site := monster.Site(scraper.Selectors{})
	site.HomeURL = browsertest.HomeURL

	fixture := &browsertest.Site{Listings: []browsertest.Listing{
		{ID: "m1", Title: "Go Developer", Company: "Acme", Location: "Austin, TX", Posted: "2 days ago"},
		{ID: "m2", Title: "SRE", Company: "Globex", Location: "Remote", Salary: "$150k"},
	}}
	orch := scraper.NewOrchestrator(browsertest.NewLauncher(fixture), nil, site, scraper.Options{
		Retry:          retry.Config{MaxAttempts: 1},
		LoadMoreSettle: 0,
	}, logger.NewNop())

	res, err := orch.ScrapeJobs(context.Background(), "Go", "Austin", 10)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 2)
	assert.Equal(t, "m1", res.Jobs[0].ExternalID)
	assert.NotEmpty(t, res.Jobs[0].PostedAt)
	require.NotNil(t, res.Jobs[1].SalaryText)
	assert.Equal(t, "$150k", *res.Jobs[1].SalaryText)
}

// Package scraper drives a browser session through a job board's search UI
// and turns its job cards into validated records.
package scraper

import (
	"context"
	"reflect"

	"go-jobboard-scraper/internal/models"
)

// Selectors locate the parts of a job board the scraper interacts with.
type Selectors struct {
	QueryInput      string `yaml:"query_input"`
	LocationInput   string `yaml:"location_input"`
	ResultsMarker   string `yaml:"results_marker"`
	Card            string `yaml:"card"`
	CardIDAttribute string `yaml:"card_id_attribute"`
	// LoadMore is optional; without it more results are requested by scrolling.
	LoadMore          string `yaml:"load_more"`
	DetailTitle       string `yaml:"detail_title"`
	DetailCompany     string `yaml:"detail_company"`
	DetailLocation    string `yaml:"detail_location"`
	DetailSalary      string `yaml:"detail_salary"`
	DetailDescription string `yaml:"detail_description"`
	DetailPostedDate  string `yaml:"detail_posted_date"`
}

// Merge returns s with every non-empty field of override applied.
func (s Selectors) Merge(override Selectors) Selectors {
	dst := reflect.ValueOf(&s).Elem()
	src := reflect.ValueOf(override)
	for i := 0; i < src.NumField(); i++ {
		if v := src.Field(i).String(); v != "" {
			dst.Field(i).SetString(v)
		}
	}
	return s
}

// Site is a job board definition.
type Site struct {
	Name      string
	HomeURL   string
	Selectors Selectors
	// BlockedTitles are page-title fragments that mean a bot wall was served.
	BlockedTitles []string
}

// JobScraper is what callers of a scrape run depend on.
type JobScraper interface {
	ScrapeJobs(ctx context.Context, jobTitle, location string, maxRecords int) (*Result, error)
}

// Result is what one run hands back to its caller.
type Result struct {
	Jobs  []models.JobRecord `json:"jobs"`
	Stats Stats              `json:"stats"`
}

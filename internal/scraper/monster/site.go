// Package monster defines the Monster job board.
package monster

import "go-jobboard-scraper/internal/scraper"

const Name = "monster"

const HomeURL = "https://www.monster.com"

// Selectors are the Monster DOM hooks the scraper relies on. They can be
// overridden per field from configuration when the site changes markup.
var Selectors = scraper.Selectors{
	QueryInput:        `[data-testid="combobox"][name="q"]`,
	LocationInput:     `[data-testid="combobox"][name="where"]`,
	ResultsMarker:     ".cCDXOr",
	Card:              `[data-testid="JobCardButton"]`,
	CardIDAttribute:   "data-job-id",
	LoadMore:          `[data-testid="svx-load-more-button"]`,
	DetailTitle:       `[data-testid="jobTitle"]`,
	DetailCompany:     `[data-testid="company"]`,
	DetailLocation:    `[data-testid="jobDetailLocation"]`,
	DetailSalary:      ".cUdlIV",
	DetailDescription: ".bYEtmI",
	DetailPostedDate:  `[data-testid="jobDetailDateRecency"]`,
}

// Site returns the Monster definition with overrides applied on top of the
// built-in selectors.
func Site(overrides scraper.Selectors) scraper.Site {
	return scraper.Site{
		Name:          Name,
		HomeURL:       HomeURL,
		Selectors:     Selectors.Merge(overrides),
		BlockedTitles: []string{"Just a moment", "Attention Required", "Access Denied"},
	}
}

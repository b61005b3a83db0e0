package models

// RawJobRecord is what the detail view yielded for one card, before validation.
// Fields that could not be read are empty (or nil for the optional ones).
type RawJobRecord struct {
	JobID          string  `json:"externalId"`
	JobTitle       string  `json:"jobTitle"`
	CompanyName    string  `json:"companyName"`
	Location       string  `json:"location"`
	Salary         *string `json:"salary"`
	JobDescription *string `json:"jobDescription"`
	PostingDate    string  `json:"postingDate"`
}

// JobRecord is a validated listing. ExternalID is the site-assigned natural key.
type JobRecord struct {
	ExternalID      string  `json:"externalId"`
	Title           string  `json:"title"`
	CompanyName     string  `json:"companyName"`
	Location        string  `json:"location"`
	SalaryText      *string `json:"salaryText"`
	DescriptionHTML *string `json:"descriptionHtml"`
	// PostedAt is an ISO-8601 date, or empty when the source date was unusable.
	PostedAt string `json:"postedAt,omitempty"`
}

// ScrapedJobs is the payload handed back by one run.
type ScrapedJobs struct {
	Jobs []JobRecord `json:"jobs"`
}

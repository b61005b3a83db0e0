package validator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobboard-scraper/internal/models"
)

func fixedNow() time.Time {
	return time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
}

func str(s string) *string { return &s }

func completeRaw() models.RawJobRecord {
	return models.RawJobRecord{
		JobID:          "j1",
		JobTitle:       "Backend Engineer",
		CompanyName:    "Acme",
		Location:       "Remote",
		Salary:         str("$120k - $140k"),
		JobDescription: str("<p>Build things</p>"),
		PostingDate:    "3 days ago",
	}
}

func TestValidate_Accepts(t *testing.T) {
	v := New(fixedNow)
	raw := completeRaw()

	rec, err := v.Validate(raw)
	require.NoError(t, err)

	assert.Equal(t, models.JobRecord{
		ExternalID:      "j1",
		Title:           "Backend Engineer",
		CompanyName:     "Acme",
		Location:        "Remote",
		SalaryText:      raw.Salary,
		DescriptionHTML: raw.JobDescription,
		PostedAt:        "2026-03-12",
	}, rec)
}

func TestValidate_KeepsAbsoluteDate(t *testing.T) {
	raw := completeRaw()
	raw.PostingDate = "2026-02-01"

	rec, err := New(fixedNow).Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", rec.PostedAt)
}

func TestValidate_DropsUnparseableDate(t *testing.T) {
	raw := completeRaw()
	raw.PostingDate = "30+ days ago"

	rec, err := New(fixedNow).Validate(raw)
	require.NoError(t, err)
	assert.Empty(t, rec.PostedAt)
}

func TestValidate_OptionalFieldsMayBeNil(t *testing.T) {
	raw := completeRaw()
	raw.Salary = nil
	raw.JobDescription = nil
	raw.PostingDate = ""

	rec, err := New(fixedNow).Validate(raw)
	require.NoError(t, err)
	assert.Nil(t, rec.SalaryText)
	assert.Nil(t, rec.DescriptionHTML)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.RawJobRecord)
		fields []string
	}{
		{"empty company", func(r *models.RawJobRecord) { r.CompanyName = "" }, []string{"companyName"}},
		{"whitespace title", func(r *models.RawJobRecord) { r.JobTitle = "  \n " }, []string{"jobTitle"}},
		{"missing id", func(r *models.RawJobRecord) { r.JobID = "" }, []string{"externalId"}},
		{"several", func(r *models.RawJobRecord) {
			r.Location = ""
			r.CompanyName = ""
		}, []string{"companyName", "location"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := completeRaw()
			tt.mutate(&raw)

			_, err := New(fixedNow).Validate(raw)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.fields, verr.Fields)
			for _, f := range tt.fields {
				assert.Contains(t, err.Error(), f)
			}
		})
	}
}

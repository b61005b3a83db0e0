// Package validator accepts or rejects extracted job records.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"go-jobboard-scraper/internal/dates"
	"go-jobboard-scraper/internal/models"
)

// ValidationError names the required fields a raw record is missing.
type ValidationError struct {
	JobID  string
	Fields []string
}

func (e *ValidationError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("invalid job record: missing %s", strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("invalid job record %s: missing %s", e.JobID, strings.Join(e.Fields, ", "))
}

// required is the trimmed view the schema is checked against.
type required struct {
	ExternalID  string `json:"externalId" validate:"required"`
	JobTitle    string `json:"jobTitle" validate:"required"`
	CompanyName string `json:"companyName" validate:"required"`
	Location    string `json:"location" validate:"required"`
}

// Validator checks raw records against the required-field schema.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// New returns a Validator resolving relative dates against now.
// A nil now uses time.Now.
func New(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v, now: now}
}

// Validate returns the accepted record, or a *ValidationError naming every
// missing field. Values are passed through unchanged except PostedAt,
// which is normalised to an ISO date or left empty.
func (v *Validator) Validate(raw models.RawJobRecord) (models.JobRecord, error) {
	view := required{
		ExternalID:  strings.TrimSpace(raw.JobID),
		JobTitle:    strings.TrimSpace(raw.JobTitle),
		CompanyName: strings.TrimSpace(raw.CompanyName),
		Location:    strings.TrimSpace(raw.Location),
	}
	if err := v.validate.Struct(view); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return models.JobRecord{}, fmt.Errorf("validate job record: %w", err)
		}
		verr := &ValidationError{JobID: view.ExternalID}
		for _, fe := range fieldErrs {
			verr.Fields = append(verr.Fields, fe.Field())
		}
		return models.JobRecord{}, verr
	}

	return models.JobRecord{
		ExternalID:      raw.JobID,
		Title:           raw.JobTitle,
		CompanyName:     raw.CompanyName,
		Location:        raw.Location,
		SalaryText:      raw.Salary,
		DescriptionHTML: raw.JobDescription,
		PostedAt:        dates.Normalize(raw.PostingDate, v.now()),
	}, nil
}

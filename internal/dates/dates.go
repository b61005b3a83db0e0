// Package dates turns the posting dates shown on job boards into ISO dates.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISOLayout is the calendar date format every resolved date is rendered in.
const ISOLayout = "2006-01-02"

// maxAgo bounds the count in a relative phrase; larger counts are not dates.
const maxAgo = 100000

var (
	isoDateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	relativeRegex = regexp.MustCompile(`(?i)\b(\d+)\s+(minutes?|hours?|days?|weeks?|months?)\s+ago\b`)
	slashDate     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// written layouts seen on job boards, tried after the relative forms
var writtenLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// Resolve converts a relative phrase such as "3 days ago", "today" or
// "yesterday" into a YYYY-MM-DD date relative to now. The second return
// value is false when the phrase is not recognised.
func Resolve(phrase string, now time.Time) (string, bool) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	switch p {
	case "today":
		return now.Format(ISOLayout), true
	case "yesterday":
		return now.AddDate(0, 0, -1).Format(ISOLayout), true
	}

	m := relativeRegex.FindStringSubmatch(p)
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > maxAgo {
		return "", false
	}

	var t time.Time
	switch strings.TrimSuffix(m[2], "s") {
	case "minute":
		t = now.Add(-time.Duration(n) * time.Minute)
	case "hour":
		t = now.Add(-time.Duration(n) * time.Hour)
	case "day":
		t = now.AddDate(0, 0, -n)
	case "week":
		t = now.AddDate(0, 0, -7*n)
	case "month":
		t = now.AddDate(0, -n, 0)
	default:
		return "", false
	}
	return t.Format(ISOLayout), true
}

// Normalize keeps raw unchanged when it is a YYYY-MM-DD date or an RFC 3339
// timestamp, cuts any other text that follows a leading ISO date, resolves
// relative phrases, re-formats dd/mm/yyyy and written dates, and returns ""
// for anything it cannot turn into a calendar date.
func Normalize(raw string, now time.Time) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if isoDateRegex.MatchString(s) {
		if _, err := time.Parse(ISOLayout, s[:10]); err != nil {
			return ""
		}
		if len(s) == len(ISOLayout) {
			return s
		}
		if _, err := time.Parse(time.RFC3339, s); err == nil {
			return s
		}
		return s[:10]
	}
	if d, ok := Resolve(s, now); ok {
		return d
	}

	//assume dd/mm/yyyy
	if m := slashDate.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
		if t.Day() != day || int(t.Month()) != month {
			return ""
		}
		return t.Format(ISOLayout)
	}

	for _, layout := range writtenLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t.Format(ISOLayout)
		}
	}
	return ""
}

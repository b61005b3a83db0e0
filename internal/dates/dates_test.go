package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		phrase string
		want   string
		ok     bool
	}{
		{"today", "today", "2026-03-15", true},
		{"today mixed case", "  ToDay ", "2026-03-15", true},
		{"yesterday", "Yesterday", "2026-03-14", true},
		{"days", "3 days ago", "2026-03-12", true},
		{"single day", "1 day ago", "2026-03-14", true},
		{"weeks", "2 weeks ago", "2026-03-01", true},
		{"months", "1 month ago", "2026-02-15", true},
		{"hours same day", "5 hours ago", "2026-03-15", true},
		{"hours crossing midnight", "11 hours ago", "2026-03-14", true},
		{"minutes", "30 minutes ago", "2026-03-15", true},
		{"embedded", "Posted 4 days ago", "2026-03-11", true},
		{"upper case unit", "6 DAYS AGO", "2026-03-09", true},
		{"gibberish", "gibberish", "", false},
		{"plus suffix", "30+ days ago", "", false},
		{"years unsupported", "2 years ago", "", false},
		{"huge minute count", "200000000 minutes ago", "", false},
		{"huge hour count", "9999999 hours ago", "", false},
		{"largest day count", "100000 days ago", now.AddDate(0, 0, -100000).Format(ISOLayout), true},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.phrase, now)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveIsPure(t *testing.T) {
	a, _ := Resolve("3 days ago", now)
	b, _ := Resolve("3 days ago", now)
	assert.Equal(t, a, b)
	assert.Equal(t, now.AddDate(0, 0, -3).Format(ISOLayout), a)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2026-01-27", "2026-01-27"},
		{"2026-01-27T08:00:00Z", "2026-01-27T08:00:00Z"},
		{"2026-13-45", ""},
		{"2026-03-01 (updated 3 days ago)", "2026-03-01"},
		{"2026-03-01garbage", "2026-03-01"},
		{"2026-03-01T08:00:00+07:00", "2026-03-01T08:00:00+07:00"},
		{"yesterday", "2026-03-14"},
		{"7 days ago", "2026-03-08"},
		{"05/02/2026", "2026-02-05"},
		{"31/02/2026", ""},
		{"Jan 5, 2026", "2026-01-05"},
		{"5 January 2026", "2026-01-05"},
		{"Recently posted", ""},
		{"30+ days ago", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw, now))
		})
	}
}

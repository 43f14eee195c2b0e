package record

import (
	"fmt"
	"strings"
	"time"
)

const (
	canonicalLayout      = "2006-01-02T15:04:05-07:00"
	canonicalMicroLayout = "2006-01-02T15:04:05.000000-07:00"
)

// timestampLayouts lists the accepted source representations. Every layout
// carries an explicit zone offset.
var timestampLayouts = []string{
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999-0700",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-0700",
}

// ParseTimestamp parses a textual timestamp that includes a zone offset.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// naiveLayouts are the zone-less forms the crawl producer accepts for its
// date fields.
var naiveLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006/01/02",
}

// ParseTimestampLenient accepts everything ParseTimestamp does plus date-only
// and offset-less forms. Values without an offset are taken as UTC.
func ParseTimestampLenient(s string) (time.Time, error) {
	if t, err := ParseTimestamp(s); err == nil {
		return t, nil
	}
	trimmed := strings.TrimSpace(s)
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// FormatTimestamp renders t as ISO-8601 with a numeric offset ("+00:00" for UTC),
// appending microseconds only when they are non-zero. The result is accepted by
// Postgres TIMESTAMPTZ columns.
func FormatTimestamp(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) != 0 {
		return t.Format(canonicalMicroLayout)
	}
	return t.Format(canonicalLayout)
}

package warcdb

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Layouts without a zone yield UTC.
var timestampLayouts = []string{
	// ISO-8601: 2022-05-10T01:03:24Z, 2022-05-10T01:03:24+0000, 2022-05-10T01:03:24
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",

	// RFC 2822 and HTTP dates: Tue, 10 May 2022 01:03:24 GMT
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"Monday, 02-Jan-06 15:04:05 MST",
	"Mon, 02-Jan-2006 15:04:05 MST",
	time.ANSIC,

	// WARC/0.17 and ARC: 20220510010324
	"20060102150405",
}

// namedZones are the zone abbreviations RFC 2822 allows besides numeric
// offsets, in seconds east of UTC.
var namedZones = map[string]int{
	"UT": 0, "UTC": 0, "GMT": 0,
	"EST": -5 * 3600, "EDT": -4 * 3600,
	"CST": -6 * 3600, "CDT": -5 * 3600,
	"MST": -7 * 3600, "MDT": -6 * 3600,
	"PST": -8 * 3600, "PDT": -7 * 3600,
}

// ParseTimestamp parses the date conventions found in WARC and HTTP headers.
// A zone abbreviation outside namedZones is an error.
func ParseTimestamp(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if strings.HasSuffix(v, " UT") {
		v += "C"
	}
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, v, time.UTC)
		if err != nil {
			continue
		}
		if !zoneByName(layout) {
			return t, nil
		}
		return resolveZone(t, s)
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// zoneByName reports whether layout takes its offset from an abbreviation.
func zoneByName(layout string) bool {
	return strings.Contains(layout, "MST") && !strings.Contains(layout, "-0700")
}

// resolveZone gives t the offset of its zone abbreviation. The time package
// reads an abbreviation it does not know as offset zero.
func resolveZone(t time.Time, s string) (time.Time, error) {
	name, offset := t.Zone()
	if offset != 0 || name == "UTC" {
		return t, nil
	}
	known, ok := namedZones[name]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown time zone %q in timestamp %q", name, s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(),
		t.Nanosecond(), time.FixedZone(name, known)), nil
}

// FormatTimestamp renders t the way timestamps are persisted, e.g.
// 2022-05-10T01:03:24+00:00. Microseconds are only written when present.
func FormatTimestamp(t time.Time) string {
	if t.Nanosecond() != 0 {
		return t.Format("2006-01-02T15:04:05.000000-07:00")
	}
	return t.Format("2006-01-02T15:04:05-07:00")
}

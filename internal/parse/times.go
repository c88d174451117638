package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Feeds write timestamps every way imaginable. The layouts are tried in
// order; date-free layouts get today's date attached and, since feeds
// describe things that already happened, roll back a day if that lands
// in the future.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04:05",
	"2 January 2006 15:04:05",
	"2 January 2006 15:04",
	"January 2 2006 15:04:05",
	"Jan 2 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"2006年01月02日 15時04分05秒",
	"01月02日 15時04分05秒",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"15時04分05秒",
	"15時04分",
	"15时04分05秒",
}

// Annotations like "UTC", "JST" or "hrs" confuse the layouts, so they
// get trimmed before parsing.
var timeNoise = regexp.MustCompile(`(?i)\s*(UTC|GMT|JST|TSİ|HKT|IST|WIB|hs|hrs|hora local|頃|ago)\.?\s*$`)

// ParseWhen resolves a feed timestamp in the given location. Date-free
// clock times are assumed to be from the last 24 hours.
func ParseWhen(text string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	text = strings.TrimSpace(timeNoise.ReplaceAllString(text, ""))
	text = strings.Trim(text, " .,;")
	if text == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			// Layouts without a year parse into year 0; stamp the
			// current one on.
			if t.Year() == 0 {
				now := time.Now().In(loc)
				t = time.Date(now.Year(), t.Month(), t.Day(),
					t.Hour(), t.Minute(), t.Second(), 0, loc)
				if t.After(now) {
					t = t.AddDate(-1, 0, 0)
				}
			}
			return t.UTC(), true
		}
	}

	for _, layout := range clockLayouts {
		t, err := time.ParseInLocation(layout, text, loc)
		if err != nil {
			continue
		}
		now := time.Now().In(loc)
		t = time.Date(now.Year(), now.Month(), now.Day(),
			t.Hour(), t.Minute(), t.Second(), 0, loc)
		if t.After(now) {
			t = t.AddDate(0, 0, -1)
		}
		return t.UTC(), true
	}

	return time.Time{}, false
}

// location resolves an IANA name, falling back to UTC on any failure so
// a bad zone in the catalog degrades a timestamp instead of a parse.
func location(name string) *time.Location {
	if name == "" || name == "UTC" {
		return time.UTC
	}
	if strings.HasPrefix(name, "UTC+") || strings.HasPrefix(name, "UTC-") {
		if offset, err := strconv.Atoi(name[3:]); err == nil {
			return time.FixedZone(name, offset*3600)
		}
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

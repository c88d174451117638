package parse

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// FromText runs the agency catalog over the report's text and fills the
// report in from the named groups. The input report may already carry a
// time, status or coordinates from its transport; extracted values win.
func FromText(report quake.Report) (quake.Report, error) {
	text := strings.ReplaceAll(report.Text, "\u00a0", " ")

	entry, matched, ok := matchPattern(text)
	if !ok {
		return report, Rejection("no expression matched %q", clipText(text, 256))
	}

	for _, key := range []string{"mag", "maxmag", "lat", "lon", "depth"} {
		if v, ok := entry[key]; ok {
			entry[key] = strings.ReplaceAll(v, ",", ".")
		}
	}

	loc := location(matched.zone)
	now := time.Now()

	if when, ok := ParseWhen(strings.TrimSpace(entry["date"]+" "+entry["time"]), loc); ok {
		report.Time = when
	}
	if status := entry["status"]; status != "" {
		report.Status = quake.ParseStatus(status)
	} else if report.Status.Label == "" {
		report.Status = quake.StatusPreliminary
	}

	switch {
	case report.Time.Before(now.Add(-48 * time.Hour)):
		return report, Rejection("obsolete time %s", report.Time)
	case report.Time.After(now):
		return report, Rejection("future time %s", report.Time)
	case report.Time.Second() == 0:
		// A timestamp cut at the minute is an early, unreviewed figure.
		report.Status = quake.StatusIncomplete
	}

	depth := 10.0
	if d, err := strconv.ParseFloat(strings.TrimSpace(entry["depth"]), 64); err == nil {
		depth = math.Abs(d)
	}

	if coords, ok := parseLatLon(entry["coords"], entry["lat"], entry["lon"]); ok {
		coords.Alt = -depth
		report.Coords = coords
	} else if report.Coords.Zero() {
		area := splitCamelCase(entry["area"])
		if area == "" {
			return report, Rejection("no position in %q", clipText(text, 256))
		}
		coords, ok := geo.Locate(area)
		if !ok && matched.country != "" {
			coords, ok = geo.Locate(matched.country)
		}
		if !ok {
			return report, Rejection("cannot geocode area %q", area)
		}
		coords.Alt = -depth
		coords.Confidence = 0.7
		if geo.KnownRegion(area) && !sameRegion(geo.Region(coords), area) {
			return report, Rejection("coordinates %s do not match region %q", coords, area)
		}
		report.Coords = coords
		report.Score *= 0.8
		report.Status = quake.StatusIncomplete
	}

	if v := entry["intensity"]; v != "" && !report.Coords.Zero() {
		scale := "Mercalli"
		region := geo.Region(report.Coords)
		if strings.Contains(region, "Japan") || strings.Contains(region, "Taiwan") {
			scale = "Shindo"
		}
		if intensity, ok := quake.ParseIntensity(v, scale); ok {
			report.Intensity = intensity
		}
	}

	if mag, err := strconv.ParseFloat(strings.TrimSpace(entry["mag"]), 64); err == nil {
		if maxmag, err := strconv.ParseFloat(strings.TrimSpace(entry["maxmag"]), 64); err == nil {
			mag = (mag + maxmag) / 2
		}
		report.Mag = quake.NewMagnitude(mag, entry["magtype"])
	} else if report.Mag.IsZero() {
		report.Mag = quake.NewMagnitude(4.5, "")
		report.Score *= 0.1
		report.Status = quake.StatusIncomplete
	}

	// Rounding maximizes key collisions between retellings of the same
	// bulletin.
	report.Coords = report.Coords.Round(2)

	if when, ok := ParseWhen(entry["update"], loc); ok {
		report.Update = when
	}
	if v := entry["alert"]; v != "" {
		report.Alert = quake.ParseSeverity(v)
	}
	if v := strings.TrimSpace(entry["source"]); v != "" {
		report.Sources = []string{v}
	}
	if v := strings.TrimSpace(entry["link"]); v != "" {
		report.Links = []string{v}
	}
	if v := strings.TrimSpace(entry["victims"]); v != "" {
		if victims, err := strconv.Atoi(v); err == nil {
			report.Victims = victims
		}
	}
	if v := strings.TrimSpace(entry["water"]); v != "" {
		if len(v) < 4 {
			report.Water = "sea"
		} else {
			report.Water = v
		}
	}

	return report, nil
}

// parseLatLon accepts either a combined "lat lon" / "lat, lon" field or
// separate components, tolerating hemisphere suffixes and degree marks.
func parseLatLon(combined, lat, lon string) (geo.Coords, bool) {
	if combined != "" {
		fields := strings.FieldsFunc(combined, func(r rune) bool {
			return r == ' ' || r == ',' || r == ';' || r == '　' || r == '/'
		})
		if len(fields) >= 2 {
			lat, lon = fields[0], fields[1]
		}
	}
	latV, okLat := parseDegrees(lat, "S")
	lonV, okLon := parseDegrees(lon, "W")
	if !okLat || !okLon || (latV == 0 && lonV == 0) {
		return geo.Coords{}, false
	}
	return geo.New(latV, lonV, 0), true
}

func parseDegrees(s, negative string) (float64, bool) {
	s = strings.TrimSpace(strings.ToUpper(s))
	s = strings.TrimSuffix(s, "°")
	if s == "" {
		return 0, false
	}
	sign := 1.0
	switch {
	case strings.HasSuffix(s, negative):
		sign = -1
		s = strings.TrimSuffix(s, negative)
	case strings.HasSuffix(s, "N"), strings.HasSuffix(s, "E"):
		s = s[:len(s)-1]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "°")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return sign * v, true
}

// splitCamelCase rescues placenames-as-hashtags: "BajaCalifornia"
// becomes "Baja California".
func splitCamelCase(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sameRegion(a, b string) bool {
	canon := func(s string) string {
		s = strings.ReplaceAll(s, "-", " ")
		s = strings.ReplaceAll(s, ",", "")
		s = strings.ReplaceAll(s, ".", "")
		return strings.ToUpper(strings.Join(strings.Fields(s), " "))
	}
	return canon(a) == canon(b)
}

func clipText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

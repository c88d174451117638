package parse

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// GeoJSON handles the USGS-style family of feeds: a FeatureCollection,
// or one of the ad-hoc JSON shapes several South American agencies
// publish under keys like "ultimos_sismos".
type GeoJSON struct{}

func (GeoJSON) Type() string  { return "GeoJSON" }
func (GeoJSON) Priority() int { return 5 }

var geoJSONListKeys = []string{"features", "data", "ultimos_sismos", "ultimos_sismos_chile"}

func (g GeoJSON) Parse(data []byte) ([]quake.Report, error) {
	var top map[string]any
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, Rejection("not a JSON object")
	}

	// Some feeds wrap a single record and put its review state a level
	// up, next to the payload.
	if action, ok := top["action"]; ok {
		if inner, ok := top["data"].(map[string]any); ok {
			inner["action"] = action
		}
	}

	var items []any
	for _, key := range geoJSONListKeys {
		switch v := top[key].(type) {
		case []any:
			items = v
		case map[string]any:
			items = []any{v}
		default:
			continue
		}
		break
	}
	if items == nil {
		return nil, Rejection("no feature list")
	}

	var reports []quake.Report
	for _, item := range items {
		feature, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if report, ok := g.convert(feature); ok {
			reports = append(reports, report)
		}
	}
	return reports, nil
}

func (g GeoJSON) convert(feature map[string]any) (quake.Report, bool) {
	coords, ok := featureCoords(feature)
	if !ok {
		return quake.Report{}, false
	}
	coords.Alt = -abs(coords.Alt)

	props := feature
	if p, ok := feature["properties"].(map[string]any); ok {
		props = p
	}

	report := quake.New(coords, jsonTime(props, []any{"time", "time"}, "time", "utc_time", "date_time", "origintime"), quake.Magnitude{})

	if update, ok := jsonTimeOK(props, []any{"time", "last_update_time"}, "updated", "lastupdate", "modificationtime"); ok {
		report.Update = update
	}
	if sources := jsonString(props, "auth", "sources", "source", "agency"); sources != "" {
		report.Sources = strings.Split(sources, ",")
	}
	report.Mag = quake.NewMagnitude(
		jsonFloat(props, []any{"magnitude", "mag"}, "magnitude", "mag"),
		jsonString(props, "magType", "magtype", "magnitudetype", "scale", []any{"magnitude", "mag_type"}))
	if alert := jsonString(props, "alert", []any{"effects", "color", 0}); alert != "" {
		report.Alert = quake.ParseSeverity(alert)
	}
	if status := jsonString(props, "quality", "action"); status != "" {
		report.Status = quake.ParseStatus(status)
	}
	switch v := props["tsunami"].(type) {
	case bool:
		if v {
			report.Water = "sea"
		}
	case float64:
		if v != 0 {
			report.Water = "sea"
		}
	}
	if link := jsonString(props, "url", "link"); link != "" {
		report.Links = []string{link}
	}

	return report, report.Valid()
}

func featureCoords(feature map[string]any) (geo.Coords, bool) {
	if geometry, ok := feature["geometry"].(map[string]any); ok {
		if raw, ok := geometry["coordinates"].([]any); ok {
			position := make([]float64, 0, len(raw))
			for _, v := range raw {
				position = append(position, toFloat(v))
			}
			if coords, err := geo.FromGeoJSON(position); err == nil {
				return coords, true
			}
		}
	}

	lat := jsonFloat(feature, "latitude", "lat")
	lon := jsonFloat(feature, "longitude", "lon")
	if lat == 0 && lon == 0 {
		return geo.Coords{}, false
	}
	return geo.New(lat, lon, -abs(jsonFloat(feature, "depth"))), true
}

// jsonValue walks the first path that resolves. A path is either a key
// string or a []any of keys and list indices.
func jsonValue(item map[string]any, paths ...any) any {
	for _, path := range paths {
		steps, ok := path.([]any)
		if !ok {
			steps = []any{path}
		}
		var current any = item
		for _, step := range steps {
			switch s := step.(type) {
			case string:
				m, ok := current.(map[string]any)
				if !ok {
					current = nil
				} else {
					current = m[s]
				}
			case int:
				list, ok := current.([]any)
				if !ok || s >= len(list) {
					current = nil
				} else {
					current = list[s]
				}
			}
			if current == nil {
				break
			}
		}
		if current != nil {
			return current
		}
	}
	return nil
}

func jsonString(item map[string]any, paths ...any) string {
	switch v := jsonValue(item, paths...).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func jsonFloat(item map[string]any, paths ...any) float64 {
	return toFloat(jsonValue(item, paths...))
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f
	}
	return 0
}

func jsonTime(item map[string]any, paths ...any) time.Time {
	t, _ := jsonTimeOK(item, paths...)
	return t
}

func jsonTimeOK(item map[string]any, paths ...any) (time.Time, bool) {
	switch v := jsonValue(item, paths...).(type) {
	case float64:
		// Epoch milliseconds, the USGS convention.
		return time.UnixMilli(int64(v)).UTC(), true
	case string:
		if t, ok := ParseWhen(v, nil); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func abs(v float64) float64 { return math.Abs(v) }

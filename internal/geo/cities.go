package geo

import "strings"

// cities is a small offline gazetteer keyed by language then lowercase
// place name. It only needs to cover places people actually post from
// when the ground shakes, not the whole planet.
var cities = map[string]map[string]Coords{
	"en": {
		"tokyo":         New(35.68, 139.69, 0),
		"osaka":         New(34.69, 135.50, 0),
		"sendai":        New(38.27, 140.87, 0),
		"sapporo":       New(43.06, 141.35, 0),
		"manila":        New(14.60, 120.98, 0),
		"davao":         New(7.07, 125.61, 0),
		"jakarta":       New(-6.21, 106.85, 0),
		"padang":        New(-0.95, 100.35, 0),
		"palu":          New(-0.90, 119.87, 0),
		"wellington":    New(-41.29, 174.78, 0),
		"christchurch":  New(-43.53, 172.64, 0),
		"athens":        New(37.98, 23.73, 0),
		"rome":          New(41.90, 12.50, 0),
		"naples":        New(40.85, 14.27, 0),
		"istanbul":      New(41.01, 28.98, 0),
		"izmir":         New(38.42, 27.14, 0),
		"ankara":        New(39.93, 32.86, 0),
		"tehran":        New(35.69, 51.39, 0),
		"kathmandu":     New(27.72, 85.32, 0),
		"taipei":        New(25.03, 121.57, 0),
		"hualien":       New(23.98, 121.60, 0),
		"anchorage":     New(61.22, -149.90, 0),
		"los angeles":   New(34.05, -118.24, 0),
		"san francisco": New(37.77, -122.42, 0),
		"seattle":       New(47.61, -122.33, 0),
		"lima":          New(-12.05, -77.04, 0),
		"santiago":      New(-33.45, -70.67, 0),
		"valparaiso":    New(-33.05, -71.62, 0),
		"acapulco":      New(16.86, -99.88, 0),
		"oaxaca":        New(17.07, -96.73, 0),
		"reykjavik":     New(64.15, -21.94, 0),
	},
	"ja": {
		"東京": New(35.68, 139.69, 0),
		"大阪": New(34.69, 135.50, 0),
		"仙台": New(38.27, 140.87, 0),
		"札幌": New(43.06, 141.35, 0),
		"名古屋": New(35.18, 136.91, 0),
		"福岡": New(33.59, 130.40, 0),
		"熊本": New(32.80, 130.71, 0),
	},
	"es": {
		"ciudad de méxico": New(19.43, -99.13, 0),
		"méxico":           New(19.43, -99.13, 0),
		"acapulco":         New(16.86, -99.88, 0),
		"oaxaca":           New(17.07, -96.73, 0),
		"lima":             New(-12.05, -77.04, 0),
		"santiago":         New(-33.45, -70.67, 0),
		"concepción":       New(-36.83, -73.05, 0),
		"valparaíso":       New(-33.05, -71.62, 0),
		"mendoza":          New(-32.89, -68.85, 0),
	},
	"el": {
		"αθήνα":       New(37.98, 23.73, 0),
		"θεσσαλονίκη": New(40.64, 22.94, 0),
		"πάτρα":       New(38.25, 21.73, 0),
		"κρήτη":       New(35.24, 24.81, 0),
	},
	"it": {
		"roma":     New(41.90, 12.50, 0),
		"napoli":   New(40.85, 14.27, 0),
		"catania":  New(37.50, 15.09, 0),
		"messina":  New(38.19, 15.55, 0),
		"l'aquila": New(42.35, 13.40, 0),
	},
	"tr": {
		"istanbul": New(41.01, 28.98, 0),
		"izmir":    New(38.42, 27.14, 0),
		"ankara":   New(39.93, 32.86, 0),
		"van":      New(38.49, 43.38, 0),
	},
	"tl": {
		"maynila": New(14.60, 120.98, 0),
		"cebu":    New(10.32, 123.90, 0),
	},
	"zh": {
		"台北": New(25.03, 121.57, 0),
		"花蓮": New(23.98, 121.60, 0),
		"台南": New(22.99, 120.21, 0),
	},
	"in": {
		"jakarta": New(-6.21, 106.85, 0),
		"padang":  New(-0.95, 100.35, 0),
		"palu":    New(-0.90, 119.87, 0),
		"lombok":  New(-8.65, 116.32, 0),
	},
}

// City scans free-form text for a known place name in the given language,
// falling back to English. The longest matching word wins; confidence
// falls with every additional place the text mentions, since a post
// naming three cities has located none of them.
func City(text, language string) (Coords, bool) {
	words := splitWords(text)
	count := 0

	var candidate Coords
	var found bool
	var length int

	for _, lang := range []string{language, "en"} {
		table, ok := cities[lang]
		if !ok {
			count++
			continue
		}
		for _, word := range words {
			coords, ok := table[strings.ToLower(word)]
			if !ok {
				continue
			}
			count++
			if len(word) > length {
				candidate = coords
				length = len(word)
				found = true
			}
		}
		if found {
			break
		}
		count++
	}

	if !found {
		return Coords{}, false
	}

	candidate.Confidence = 0.7 / float64(count)
	return candidate, true
}

// Locate resolves a bare place name to coordinates: city tables in
// every language first, then the named seismic patches. Geocoded fixes
// are deliberately fuzzy, so the radius spans the whole patch.
func Locate(name string) (Coords, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return Coords{}, false
	}

	for _, table := range cities {
		if coords, ok := table[needle]; ok {
			coords.Confidence = 1.0
			return coords, true
		}
	}

	for _, box := range regionBoxes {
		if strings.Contains(strings.ToLower(box.name), needle) {
			center := Coords{
				Lat:        (box.minLat + box.maxLat) / 2,
				Lon:        (box.minLon + box.maxLon) / 2,
				Confidence: 1.0,
			}
			corner := Coords{Lat: box.maxLat, Lon: box.maxLon}
			center.Radius = center.SurfaceKm(corner)
			return center, true
		}
	}

	return Coords{}, false
}

func splitWords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', '#', '?', '!', ',', ';', ':', '"', ' ', '\n', '\t':
			return true
		}
		return false
	})
	for i, f := range fields {
		fields[i] = strings.Trim(f, ".#?!'’ ")
	}
	return fields
}

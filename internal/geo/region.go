package geo

import (
	"fmt"
	"strings"
)

// regionBox names a rectangular patch of seismically interesting territory.
// Boxes are checked in order; the first hit wins, so more specific patches
// come before the broad ones that contain them.
type regionBox struct {
	minLat, maxLat float64
	minLon, maxLon float64
	name           string
}

var regionBoxes = []regionBox{
	{35.0, 41.5, 139.0, 145.0, "Near East Coast of Honshu, Japan"},
	{30.0, 35.0, 130.0, 137.0, "Shikoku, Japan"},
	{24.0, 30.0, 126.0, 131.0, "Ryukyu Islands, Japan"},
	{30.0, 46.0, 128.0, 146.0, "Japan Region"},
	{21.5, 25.5, 119.5, 122.5, "Taiwan"},
	{4.5, 21.5, 116.0, 127.0, "Philippine Islands Region"},
	{-11.0, 6.0, 94.0, 141.0, "Indonesia Region"},
	{-47.5, -34.0, 165.0, 179.5, "New Zealand"},
	{-23.0, -12.0, 165.0, 172.0, "Vanuatu Islands"},
	{-12.0, 0.0, 145.0, 157.0, "New Guinea Region"},
	{50.0, 57.0, 152.0, 180.0, "Kuril Islands"},
	{50.5, 60.0, -180.0, -160.0, "Aleutian Islands, Alaska"},
	{54.0, 72.0, -170.0, -130.0, "Alaska"},
	{32.0, 42.5, -125.0, -114.0, "California"},
	{31.0, 37.0, -117.0, -108.0, "Arizona-Sonora Border Region"},
	{14.0, 32.0, -118.0, -86.0, "Mexico"},
	{12.5, 15.5, -92.5, -88.0, "Guatemala"},
	{8.0, 11.5, -86.0, -82.5, "Costa Rica"},
	{-4.5, 13.0, -82.0, -66.0, "Colombia"},
	{-18.5, -0.0, -82.0, -68.0, "Peru"},
	{-56.0, -17.5, -76.0, -66.0, "Chile"},
	{-55.0, -21.5, -66.0, -53.0, "Argentina"},
	{35.0, 42.5, 19.0, 28.5, "Greece"},
	{36.0, 42.0, 26.0, 45.0, "Turkey"},
	{36.5, 47.5, 6.5, 19.0, "Italy"},
	{42.0, 46.0, 12.5, 19.5, "Adriatic Sea"},
	{34.5, 41.0, 22.5, 28.0, "Aegean Sea"},
	{34.0, 36.0, 32.0, 35.0, "Cyprus Region"},
	{27.5, 40.0, 44.0, 64.0, "Iran"},
	{26.5, 40.0, 60.0, 75.0, "Pakistan"},
	{26.5, 31.0, 79.0, 89.0, "Nepal"},
	{18.0, 54.0, 73.0, 135.0, "China"},
	{41.5, 44.5, 142.0, 148.5, "Hokkaido, Japan Region"},
	{50.0, 72.0, 20.0, 180.0, "Russia"},
	{60.0, 67.0, -25.0, -12.0, "Iceland Region"},
	{36.0, 44.0, -34.0, -23.0, "Azores Islands Region"},
	{18.5, 29.0, -19.0, -13.0, "Canary Islands Region"},
	{17.0, 20.0, -76.0, -71.0, "Haiti Region"},
	{17.5, 21.0, -68.0, -64.0, "Puerto Rico Region"},
	{-20.0, 0.0, -180.0, -168.0, "Tonga Islands Region"},
}

// seaTerms flags regions that are over water from the region name alone.
// landTerms overrides regions whose names sound ambiguous but are inland.
var seaTerms = []string{"OFF COAST", " OCEAN", " SEA", " RISE", " RIDGE", " TRENCH"}

var landTerms = []string{
	"AFGHANISTAN", "BOLIVIA", "COLORADO", "HUNGARY", "IDAHO", "KANSAS",
	"KASHMIR", "KYRGYZSTAN", "MONGOLIA", "MONTANA", "NEPAL", "NEVADA",
	"OKLAHOMA", "PARAGUAY", "SICHUAN", "SWITZERLAND", "TAJIKISTAN",
	"UZBEKISTAN", "WYOMING", "XINJIANG", "YUNNAN", "ZAMBIA",
}

// Region names the seismic region containing the coordinates. Points
// outside every known patch get a coarse quadrant fallback so callers
// always have a stable key to hang thresholds on.
func Region(c Coords) string {
	for _, box := range regionBoxes {
		if c.Lat >= box.minLat && c.Lat <= box.maxLat &&
			c.Lon >= box.minLon && c.Lon <= box.maxLon {
			return box.name
		}
	}

	ns, ew := "N", "E"
	if c.Lat < 0 {
		ns = "S"
	}
	if c.Lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("Region %d%s %d%s",
		int(math10(c.Lat)), ns, int(math10(c.Lon)), ew)
}

// KnownRegion reports whether name matches one of the named patches,
// ignoring case and punctuation. Used to cross-check geocoded fixes
// against the region a feed claims.
func KnownRegion(name string) bool {
	needle := canonicalRegion(name)
	for _, box := range regionBoxes {
		if canonicalRegion(box.name) == needle {
			return true
		}
	}
	return false
}

func canonicalRegion(name string) string {
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, ",", "")
	name = strings.ReplaceAll(name, ".", "")
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

func math10(v float64) float64 {
	if v < 0 {
		v = -v
	}
	return float64(int(v)/10) * 10
}

// Sea reports whether the coordinates are likely over water, judged from
// the region name. Unknown names count as land.
func Sea(c Coords) bool {
	name := strings.ToUpper(Region(c))
	for _, term := range landTerms {
		if strings.Contains(name, term) {
			return false
		}
	}
	for _, term := range seaTerms {
		if strings.Contains(name, term) {
			return true
		}
	}
	return false
}

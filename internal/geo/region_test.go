package geo

import (
	"strings"
	"testing"
)

func TestRegion_KnownBoxes(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     string
	}{
		{38.3, 142.4, "Near East Coast of Honshu, Japan"},
		{38.0, 23.7, "Greece"},
		{-33.4, -70.7, "Chile"},
		{35.0, -118.0, "California"},
		{24.0, 121.6, "Taiwan"},
	}

	for _, tt := range tests {
		got := Region(New(tt.lat, tt.lon, 0))
		if got != tt.want {
			t.Errorf("Region(%v, %v) = %q, want %q", tt.lat, tt.lon, got, tt.want)
		}
	}
}

func TestRegion_FallbackIsStable(t *testing.T) {
	c := New(-75.0, 10.0, 0)
	first := Region(c)
	if first == "" {
		t.Fatal("fallback region must not be empty")
	}
	if first != Region(c) {
		t.Error("fallback region must be deterministic")
	}
	if !strings.Contains(first, "S") {
		t.Errorf("expected a southern-quadrant name, got %q", first)
	}
}

func TestSea(t *testing.T) {
	// The Honshu box is named after the coast, so it counts as land;
	// the Adriatic box is named after the sea.
	if Sea(New(43.0, 14.5, 0)) != true {
		t.Error("expected the Adriatic to be sea")
	}
	if Sea(New(38.0, 23.7, 0)) {
		t.Error("expected Greece to be land")
	}
}

func TestLanguages(t *testing.T) {
	langs := Languages("Near East Coast of Honshu, Japan")
	if langs[0] != "ja" {
		t.Errorf("expected Japanese first for Honshu, got %v", langs)
	}
	if langs[len(langs)-1] != "en" {
		t.Errorf("expected English last, got %v", langs)
	}

	if got := Languages("Somewhere Unmapped"); len(got) != 1 || got[0] != "en" {
		t.Errorf("expected bare English for unknown regions, got %v", got)
	}

	// Border entries outrank the adjacent plain country entries.
	langs = Languages("Greece-Albania Border Region")
	if len(langs) < 2 || langs[1] != "sq" {
		t.Errorf("expected Albanian in the border region, got %v", langs)
	}
}

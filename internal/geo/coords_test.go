package geo

import (
	"math"
	"testing"
)

func TestCoords_EqualTolerances(t *testing.T) {
	a := New(35.6895, 139.6917, -10)
	b := New(35.6899, 139.6912, -10.005)

	if !a.Equal(b) {
		t.Error("expected near-identical coordinates to compare equal")
	}

	far := New(35.70, 139.69, -10)
	if a.Equal(far) {
		t.Error("expected a 0.01 degree latitude shift to break equality")
	}

	vague := b
	vague.Radius = 50
	if a.Equal(vague) {
		t.Error("expected a large radius difference to break equality")
	}
}

func TestCoords_SurfaceKm(t *testing.T) {
	tokyo := New(35.6895, 139.6917, 0)
	osaka := New(34.6937, 135.5023, 0)

	got := tokyo.SurfaceKm(osaka)
	if got < 390 || got > 410 {
		t.Errorf("Tokyo-Osaka should be about 400 km, got %.1f", got)
	}
	if tokyo.SurfaceKm(tokyo) != 0 {
		t.Error("distance to self must be zero")
	}
}

func TestCoords_SeparationPenalizesUncertainty(t *testing.T) {
	a := New(35.0, 139.0, 0)
	b := New(35.0, 139.0, 0)
	b.Radius = 100
	a.Radius = 100

	// Coincident points with wide radii still separate by a quarter of
	// the combined radii.
	if got := a.Separation(b); math.Abs(got-50) > 0.1 {
		t.Errorf("expected separation 50 for two 100 km radii, got %.2f", got)
	}

	c := New(36.0, 139.0, 0)
	plain := a.SurfaceKm(c)
	if got := a.Separation(c); got < plain*1.5-0.1 {
		t.Errorf("expected at least 1.5x inflation for distant points, got %.2f vs %.2f", got, plain)
	}
}

func TestCoords_GeoJSONRoundTrip(t *testing.T) {
	c := New(-36.83, -73.05, -35)
	back, err := FromGeoJSON(c.GeoJSON())
	if err != nil {
		t.Fatalf("FromGeoJSON failed: %v", err)
	}
	if math.Abs(back.Lat-c.Lat) > 1e-6 || math.Abs(back.Lon-c.Lon) > 1e-6 || math.Abs(back.Alt-c.Alt) > 1e-6 {
		t.Errorf("round trip drifted: %v vs %v", back, c)
	}

	if _, err := FromGeoJSON([]float64{1}); err == nil {
		t.Error("expected error for a one-element position")
	}
}

func TestCenter_WeightedMean(t *testing.T) {
	points := []Weighted{
		{Point: New(35.0, 139.0, 0), Weight: 1},
		{Point: New(36.0, 139.0, 0), Weight: 1},
	}

	center, ok := Center(points)
	if !ok {
		t.Fatal("expected a center")
	}
	if math.Abs(center.Lat-35.5) > 1e-9 {
		t.Errorf("expected latitude 35.5, got %v", center.Lat)
	}
	if center.Radius <= 0 {
		t.Error("expected a nonzero spread radius")
	}

	// A dominant weight pulls the center toward itself.
	points[0].Weight = 9
	center, _ = Center(points)
	if center.Lat > 35.2 {
		t.Errorf("expected center near the heavy point, got %v", center.Lat)
	}

	if _, ok := Center(nil); ok {
		t.Error("expected no center for no points")
	}
}

func TestCoords_RoundAbsorbsDisplacement(t *testing.T) {
	c := New(35.6895, 139.6917, -10.4)
	rounded := c.Round(2)

	if rounded.Lat != 35.69 || rounded.Lon != 139.69 {
		t.Errorf("unexpected rounding: %v", rounded)
	}
	if rounded.Radius < rounded.Separation(c)-1e-9 {
		t.Error("rounding must absorb the displacement into the radius")
	}
}

func TestCity_Lookup(t *testing.T) {
	coords, ok := City("Σεισμός στην Αθήνα τώρα!", "el")
	if !ok {
		t.Fatal("expected to find Athens")
	}
	if math.Abs(coords.Lat-37.98) > 0.01 {
		t.Errorf("expected Athens latitude, got %v", coords.Lat)
	}
	if coords.Confidence <= 0 || coords.Confidence > 0.7 {
		t.Errorf("expected confidence in (0, 0.7], got %v", coords.Confidence)
	}

	if _, ok := City("nothing located here", "en"); ok {
		t.Error("expected no city in unrelated text")
	}
}

func TestCity_EnglishFallback(t *testing.T) {
	coords, ok := City("big quake in Tokyo", "xx")
	if !ok {
		t.Fatal("expected English fallback to find Tokyo")
	}
	// The failed first pass costs confidence.
	if coords.Confidence >= 0.7 {
		t.Errorf("expected reduced confidence after fallback, got %v", coords.Confidence)
	}
}

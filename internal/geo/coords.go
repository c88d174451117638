// Package geo provides coordinate handling, region naming and a small
// offline gazetteer for resolving place names found in free-form text.
package geo

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// Coords is a point on (or under) the Earth's surface together with an
// uncertainty radius and a confidence in the fix itself. Alt is in km,
// negative below the surface.
type Coords struct {
	Lat        float64
	Lon        float64
	Alt        float64
	Radius     float64
	Confidence float64
}

// New returns coordinates with full confidence and no uncertainty radius.
func New(lat, lon, alt float64) Coords {
	return Coords{Lat: lat, Lon: lon, Alt: alt, Confidence: 1.0}
}

// FromGeoJSON builds coordinates from a GeoJSON position (lon, lat[, alt]).
func FromGeoJSON(position []float64) (Coords, error) {
	if len(position) < 2 {
		return Coords{}, fmt.Errorf("geo: position needs at least lon and lat, got %d values", len(position))
	}
	c := New(position[1], position[0], 0)
	if len(position) > 2 {
		c.Alt = position[2]
	}
	return c, nil
}

// GeoJSON returns the position as a GeoJSON coordinate array.
func (c Coords) GeoJSON() []float64 {
	return []float64{c.Lon, c.Lat, c.Alt}
}

// Zero reports whether the coordinates were never set.
func (c Coords) Zero() bool {
	return c.Lat == 0 && c.Lon == 0 && c.Confidence == 0
}

// Equal applies per-field tolerances: 0.001 degrees on latitude and
// longitude, 0.01 km on altitude, 0.05 on confidence and 0.5 km on the
// uncertainty radius.
func (c Coords) Equal(other Coords) bool {
	switch {
	case math.Abs(c.Lat-other.Lat) > 0.001:
		return false
	case math.Abs(c.Lon-other.Lon) > 0.001:
		return false
	case math.Abs(c.Alt-other.Alt) > 0.01:
		return false
	case math.Abs(c.Confidence-other.Confidence) > 0.05:
		return false
	case math.Abs(c.Radius-other.Radius) > 0.5:
		return false
	}
	return true
}

// SurfaceKm is the great-circle distance to other in km, ignoring
// uncertainty.
func (c Coords) SurfaceKm(other Coords) float64 {
	lat1 := c.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - c.Lat) * math.Pi / 180
	dLon := (other.Lon - c.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Separation is the pessimistic distance to other: the great-circle
// distance inflated by whichever is larger, half the distance itself or a
// quarter of the combined uncertainty radii. Two vague fixes therefore
// never look deceptively close.
func (c Coords) Separation(other Coords) float64 {
	d := c.SurfaceKm(other)
	return d + math.Max(d*0.5, (c.Radius+other.Radius)*0.25)
}

// Weighted pairs coordinates with a weight for Center.
type Weighted struct {
	Point  Coords
	Weight float64
}

// Center returns the weighted mean of points. Its radius is set to twice
// the weighted RMS separation of the inputs from the mean, so the result
// covers the cluster it summarizes.
func Center(points []Weighted) (Coords, bool) {
	if len(points) == 0 {
		return Coords{}, false
	}

	var lat, lon, alt, total float64
	for _, p := range points {
		lat += p.Point.Lat * p.Weight
		lon += p.Point.Lon * p.Weight
		alt += p.Point.Alt * p.Weight
		total += p.Weight
	}
	if total == 0 {
		return Coords{}, false
	}

	mean := New(lat/total, lon/total, alt/total)

	var spread float64
	for _, p := range points {
		sep := p.Point.Separation(mean)
		spread += sep * sep * p.Weight
	}
	mean.Radius = 2.0 * math.Sqrt(spread/total)

	return mean, true
}

// Round truncates the point to the given number of decimal digits,
// absorbing the displacement into the uncertainty radius.
func (c Coords) Round(digits int) Coords {
	scale := math.Pow(10, float64(digits))
	rounded := New(
		math.Round(c.Lat*scale)/scale,
		math.Round(c.Lon*scale)/scale,
		math.Round(c.Alt*scale)/scale,
	)
	rounded.Radius = math.Max(c.Radius, rounded.Separation(c))
	return rounded
}

func (c Coords) String() string {
	out := fmt.Sprintf("(%.3f, %.3f)", c.Lat, c.Lon)
	if c.Radius > 1.0 {
		out += fmt.Sprintf(" ±%d km", int(c.Radius))
	}
	if c.Alt < -1 {
		out += fmt.Sprintf(", down %d km", int(math.Abs(c.Alt)))
	}
	if c.Confidence < 0.7 {
		out += fmt.Sprintf(" (%d%%)", int(c.Confidence*100))
	}
	return out
}

package api

import (
	"github.com/quakewatch/quakewatch/internal/fusion"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(events []*fusion.Event) FeatureCollection {
	features := make([]Feature, 0, len(events))

	for _, e := range events {
		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{e.Coords.Lon, e.Coords.Lat, -e.DepthKm()},
			},
			Properties: map[string]any{
				"id":         e.ID.String(),
				"time":       e.Time,
				"updated":    e.Update,
				"magnitude":  e.Mag.Value,
				"mag_unit":   e.Mag.Unit,
				"depth_km":   e.DepthKm(),
				"radius_km":  e.RadiusKm(),
				"region":     e.Region(),
				"status":     e.Status.Label,
				"alert":      e.Alert.Name,
				"confidence": e.Confidence(),
				"score":      e.Score,
				"official":   e.Official(),
				"tsunami":    e.Tsunami(),
				"reports":    len(e.Children),
				"sources":    e.Sources,
				"links":      e.Links,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

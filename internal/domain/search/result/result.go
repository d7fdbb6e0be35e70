// Package result holds the outcome of a location search.
package result

import "github.com/rikitraki/trackapi/internal/domain/track"

// Center is the query point.
type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location is the windowed, distance-ordered answer to a nearby query.
type Location struct {
	Center   Center          `json:"center"`
	RadiusKm float64         `json:"radiusKm"`
	Count    int             `json:"count"`
	Tracks   []track.Summary `json:"tracks"`
}

// Empty returns the zero answer around (lat, lon).
func Empty(lat, lon float64) Location {
	return Location{Center: Center{Lat: lat, Lon: lon}, Tracks: []track.Summary{}}
}

// New builds a result from the selected tracks. RadiusKm is the distance of
// the last (farthest) selected track.
func New(lat, lon float64, tracks []track.Summary, distances []float64) Location {
	if len(tracks) == 0 {
		return Empty(lat, lon)
	}
	return Location{
		Center:   Center{Lat: lat, Lon: lon},
		RadiusKm: distances[len(distances)-1],
		Count:    len(tracks),
		Tracks:   tracks,
	}
}

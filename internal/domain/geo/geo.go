// Package geo holds the geospatial primitives used by track search:
// geohash cells and great-circle distance.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/mmcloughlin/geohash"
)

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

const (
	// NoPrecision is the sentinel precision meaning "no geohash constraint".
	NoPrecision = 0
	// MaxPrecision is the longest geohash the codec produces.
	MaxPrecision = 12
	// TrackPrecision is the precision of the geohash stored on every track.
	TrackPrecision = 9
)

var (
	// ErrInvalidCoordinate signals lat/lon outside the valid range or not finite.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrInvalidPrecision signals a geohash precision outside 1..12.
	ErrInvalidPrecision = errors.New("invalid geohash precision")
	// ErrInvalidGeohash signals a string that is not a geohash.
	ErrInvalidGeohash = errors.New("invalid geohash")
)

// Encode returns the geohash of (lat, lon) with exactly precision characters.
func Encode(lat, lon float64, precision int) (string, error) {
	if !ValidateCoordinates(lat, lon) {
		return "", fmt.Errorf("%w: (%g, %g)", ErrInvalidCoordinate, lat, lon)
	}
	if precision < 1 || precision > MaxPrecision {
		return "", fmt.Errorf("%w: %d", ErrInvalidPrecision, precision)
	}
	return geohash.EncodeWithPrecision(lat, lon, uint(precision)), nil
}

// Neighbors returns the 8 cells adjacent to hash, in the order
// N, NE, E, SE, S, SW, W, NW. Every neighbor has the length of hash.
func Neighbors(hash string) ([]string, error) {
	if hash == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidGeohash)
	}
	if err := geohash.Validate(hash); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGeohash, err)
	}
	return geohash.Neighbors(hash), nil
}

// Cells returns the cell containing (lat, lon) followed by its 8 neighbors.
// NoPrecision yields nil: the caller must scan without a geohash constraint.
func Cells(lat, lon float64, precision int) ([]string, error) {
	if precision == NoPrecision {
		return nil, nil
	}
	center, err := Encode(lat, lon, precision)
	if err != nil {
		return nil, err
	}
	neighbors, err := Neighbors(center)
	if err != nil {
		return nil, err
	}
	cells := make([]string, 0, 1+len(neighbors))
	cells = append(cells, center)
	return append(cells, neighbors...), nil
}

// HaversineKm returns the great-circle distance in kilometers between two
// points given in degrees. Any non-finite input yields NaN.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	if !finite(lat1) || !finite(lon1) || !finite(lat2) || !finite(lon2) {
		return math.NaN()
	}

	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	if !finite(lat) || !finite(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

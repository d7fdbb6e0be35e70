// Package track defines the track record as seen by search and its
// curated projection.
package track

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rikitraki/trackapi/internal/domain/geo"
)

// MaxNameLength bounds trackName.
const MaxNameLength = 256

// LatLng is a coordinate pair in degrees.
type LatLng struct {
	Lat float64
	Lon float64
}

// Track is a stored track record.
// GeoHash is derived from LatLng once, at creation, and never recomputed.
type Track struct {
	ID          string
	LatLng      *LatLng
	GeoHash     string
	Username    string
	Type        string
	Level       string
	Favorite    bool
	Name        string
	Description string
	Regions     RegionTags
	HasPhotos   bool
	IsDeleted   bool
	CreatedDate time.Time
	UpdatedDate time.Time
}

// Input carries client-supplied fields for a new track.
type Input struct {
	Username    string
	Name        string
	Description string
	LatLng      LatLng
	Type        string
	Level       string
	Favorite    bool
	RegionTags  []string
	HasPhotos   bool
}

// New validates input and builds a Track with a fresh ID and geohash.
func New(in Input, now time.Time) (Track, error) {
	if in.Username == "" {
		return Track{}, errors.New("username is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return Track{}, errors.New("trackName is required")
	}
	if len(in.Name) > MaxNameLength {
		return Track{}, fmt.Errorf("trackName too long (max %d)", MaxNameLength)
	}
	if len(in.RegionTags) == 0 {
		return Track{}, errors.New("trackRegionTags must contain at least a country")
	}

	hash, err := geo.Encode(in.LatLng.Lat, in.LatLng.Lon, geo.TrackPrecision)
	if err != nil {
		return Track{}, fmt.Errorf("trackLatLng: %w", err)
	}

	ll := in.LatLng
	return Track{
		ID:          NewID(),
		LatLng:      &ll,
		GeoHash:     hash,
		Username:    in.Username,
		Type:        in.Type,
		Level:       in.Level,
		Favorite:    in.Favorite,
		Name:        in.Name,
		Description: in.Description,
		Regions:     FromList(in.RegionTags),
		HasPhotos:   in.HasPhotos,
		CreatedDate: now.UTC(),
	}, nil
}

// NewID returns a short random track identifier.
func NewID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:12]
}

// Visible reports whether the track may surface on read paths.
func (t *Track) Visible() bool {
	return !t.IsDeleted
}

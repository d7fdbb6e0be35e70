package track

import "time"

// Summary is the curated projection returned by list and location search.
type Summary struct {
	ID          string      `json:"trackId"`
	LatLng      *[2]float64 `json:"trackLatLng,omitempty"`
	CreatedDate time.Time   `json:"createdDate"`
	Username    string      `json:"username"`
	Type        string      `json:"trackType,omitempty"`
	Level       string      `json:"trackLevel,omitempty"`
	Favorite    bool        `json:"trackFav"`
	Name        string      `json:"trackName"`
	RegionTags  []string    `json:"trackRegionTags"`
}

// Summarize projects t onto the curated field subset.
func Summarize(t *Track) Summary {
	s := Summary{
		ID:          t.ID,
		CreatedDate: t.CreatedDate,
		Username:    t.Username,
		Type:        t.Type,
		Level:       t.Level,
		Favorite:    t.Favorite,
		Name:        t.Name,
		RegionTags:  t.Regions.List(),
	}
	if t.LatLng != nil {
		s.LatLng = &[2]float64{t.LatLng.Lat, t.LatLng.Lon}
	}
	if s.RegionTags == nil {
		s.RegionTags = []string{}
	}
	return s
}

// Detail is the full external representation of a track.
type Detail struct {
	Summary
	GeoHash     string     `json:"trackGeoHash"`
	Description string     `json:"trackDescription,omitempty"`
	HasPhotos   bool       `json:"hasPhotos"`
	UpdatedDate *time.Time `json:"updatedDate,omitempty"`
}

// Describe returns the full representation of t.
func Describe(t *Track) Detail {
	d := Detail{
		Summary:     Summarize(t),
		GeoHash:     t.GeoHash,
		Description: t.Description,
		HasPhotos:   t.HasPhotos,
	}
	if !t.UpdatedDate.IsZero() {
		u := t.UpdatedDate
		d.UpdatedDate = &u
	}
	return d
}

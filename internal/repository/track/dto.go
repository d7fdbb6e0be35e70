package track

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rikitraki/trackapi/internal/domain/search/plan"
	domtrack "github.com/rikitraki/trackapi/internal/domain/track"
)

// Hash field names.
const (
	fieldID          = "trackId"
	fieldLatLng      = "trackLatLng"
	fieldGeoHash     = "trackGeoHash"
	fieldUsername    = "username"
	fieldType        = "trackType"
	fieldLevel       = "trackLevel"
	fieldFav         = "trackFav"
	fieldName        = "trackName"
	fieldDescription = "trackDescription"
	fieldRegionTags  = "trackRegionTags"
	fieldHasPhotos   = "hasPhotos"
	fieldIsDeleted   = "isDeleted"
	fieldCreatedAt   = "createdAt"
	fieldUpdatedAt   = "updatedAt"
	fieldIndexPK     = "tracksIndexPK"
)

// regionSeparator joins region tags in the hash; it is also the TAG
// separator of the index so each tag is matched on its own.
const regionSeparator = "|"

// trackToHash converts a Track to a map for HSET.
func trackToHash(t *domtrack.Track) map[string]string {
	m := map[string]string{
		fieldID:         t.ID,
		fieldGeoHash:    t.GeoHash,
		fieldUsername:   t.Username,
		fieldType:       t.Type,
		fieldLevel:      t.Level,
		fieldFav:        strconv.FormatBool(t.Favorite),
		fieldName:       t.Name,
		fieldRegionTags: strings.Join(t.Regions.List(), regionSeparator),
		fieldHasPhotos:  strconv.FormatBool(t.HasPhotos),
		fieldIsDeleted:  strconv.FormatBool(t.IsDeleted),
		fieldCreatedAt:  strconv.FormatInt(t.CreatedDate.UnixMilli(), 10),
		fieldIndexPK:    plan.AllTracksPK,
	}
	if t.LatLng != nil {
		m[fieldLatLng] = formatLatLng(*t.LatLng)
	}
	if t.Description != "" {
		m[fieldDescription] = t.Description
	}
	if !t.UpdatedDate.IsZero() {
		m[fieldUpdatedAt] = strconv.FormatInt(t.UpdatedDate.UnixMilli(), 10)
	}
	return m
}

// patchToHash returns the hash fields p touches, with values taken from the
// already patched t. Location fields are never part of an update.
func patchToHash(t *domtrack.Track, p domtrack.Patch) map[string]string {
	m := map[string]string{
		fieldUpdatedAt: strconv.FormatInt(t.UpdatedDate.UnixMilli(), 10),
	}
	if p.Name != nil {
		m[fieldName] = t.Name
	}
	if p.Description != nil {
		m[fieldDescription] = t.Description
	}
	if p.Type != nil {
		m[fieldType] = t.Type
	}
	if p.Level != nil {
		m[fieldLevel] = t.Level
	}
	if p.Favorite != nil {
		m[fieldFav] = strconv.FormatBool(t.Favorite)
	}
	if p.RegionTags != nil {
		m[fieldRegionTags] = strings.Join(t.Regions.List(), regionSeparator)
	}
	return m
}

// trackFromHash hydrates a Track from an HGETALL or FT.SEARCH field map.
// A missing trackLatLng leaves LatLng nil; a malformed one is an error.
func trackFromHash(id string, m map[string]string) (domtrack.Track, error) {
	if v := m[fieldID]; v != "" {
		id = v
	}
	if id == "" {
		return domtrack.Track{}, errors.New("missing trackId")
	}

	t := domtrack.Track{
		ID:          id,
		GeoHash:     m[fieldGeoHash],
		Username:    m[fieldUsername],
		Type:        m[fieldType],
		Level:       m[fieldLevel],
		Favorite:    m[fieldFav] == "true",
		Name:        m[fieldName],
		Description: m[fieldDescription],
		HasPhotos:   m[fieldHasPhotos] == "true",
		IsDeleted:   m[fieldIsDeleted] == "true",
	}

	if raw := m[fieldLatLng]; raw != "" {
		ll, err := parseLatLng(raw)
		if err != nil {
			return domtrack.Track{}, fmt.Errorf("invalid %s: %w", fieldLatLng, err)
		}
		t.LatLng = &ll
	}

	if raw := m[fieldRegionTags]; raw != "" {
		t.Regions = domtrack.FromList(strings.Split(raw, regionSeparator))
	}

	if raw := m[fieldCreatedAt]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domtrack.Track{}, fmt.Errorf("invalid %s: %w", fieldCreatedAt, err)
		}
		t.CreatedDate = time.UnixMilli(ms).UTC()
	}

	if raw := m[fieldUpdatedAt]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domtrack.Track{}, fmt.Errorf("invalid %s: %w", fieldUpdatedAt, err)
		}
		t.UpdatedDate = time.UnixMilli(ms).UTC()
	}

	return t, nil
}

func formatLatLng(ll domtrack.LatLng) string {
	return strconv.FormatFloat(ll.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(ll.Lon, 'f', -1, 64)
}

func parseLatLng(raw string) (domtrack.LatLng, error) {
	latStr, lonStr, ok := strings.Cut(raw, ",")
	if !ok {
		return domtrack.LatLng{}, fmt.Errorf("expected \"lat,lon\", got %q", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return domtrack.LatLng{}, fmt.Errorf("lat: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return domtrack.LatLng{}, fmt.Errorf("lon: %w", err)
	}
	return domtrack.LatLng{Lat: lat, Lon: lon}, nil
}

// Package plan selects the secondary index and key that drive a track
// listing query. Residual filtering happens in memory after the query.
package plan

import "github.com/rikitraki/trackapi/internal/domain/search/filter"

// DefaultLimit caps a listing query when the caller gives no limit.
const DefaultLimit = 5000

// Index is a logical secondary index over the track store.
type Index string

// Logical indexes.
const (
	TracksByUser    Index = "TracksByUser"
	TracksByRegion  Index = "TracksByRegion"
	TracksByType    Index = "TracksByType"
	TracksByLevel   Index = "TracksByLevel"
	TracksByDate    Index = "TracksByDate"
	TracksByGeoHash Index = "TracksByGeoHash"
)

// Key attributes, named after the fields they read.
const (
	AttrUsername  = "username"
	AttrRegionTag = "trackRegionTag"
	AttrType      = "trackType"
	AttrLevel     = "trackLevel"
	AttrIndexPK   = "tracksIndexPK"
	AttrGeoHash   = "trackGeoHash"
)

// AllTracksPK is the constant partition value shared by every track.
const AllTracksPK = "TRACKS"

// Descriptor is a storage-agnostic query: the records of Index whose
// KeyAttribute equals KeyValue (or starts with it when Prefix is set).
type Descriptor struct {
	Index          Index
	KeyAttribute   string
	KeyValue       string
	Prefix         bool
	ExcludeDeleted bool
	Limit          int
}

// Plan picks the index for expr. Precedence: username, then region
// (region over country), then activity, then level, else the date index.
// Only the first value of a comma list drives the index.
func Plan(expr filter.Expression, limit int) Descriptor {
	d := Descriptor{
		Index:          TracksByDate,
		KeyAttribute:   AttrIndexPK,
		KeyValue:       AllTracksPK,
		ExcludeDeleted: true,
		Limit:          normalizeLimit(limit),
	}

	conds := expr.DrivingConditions()
	if len(conds) == 0 {
		return d
	}

	if c, ok := first(conds, filter.KeyUsername); ok {
		d.Index, d.KeyAttribute, d.KeyValue = TracksByUser, AttrUsername, *c.Username
		return d
	}
	if c, ok := first(conds, filter.KeyRegion); ok {
		d.Index, d.KeyAttribute, d.KeyValue = TracksByRegion, AttrRegionTag, c.Region[0]
		return d
	}
	if c, ok := first(conds, filter.KeyCountry); ok {
		d.Index, d.KeyAttribute, d.KeyValue = TracksByRegion, AttrRegionTag, c.Country[0]
		return d
	}
	if c, ok := first(conds, filter.KeyActivity); ok {
		d.Index, d.KeyAttribute, d.KeyValue = TracksByType, AttrType, c.Activity[0]
		return d
	}
	if c, ok := first(conds, filter.KeyLevel); ok {
		d.Index, d.KeyAttribute, d.KeyValue = TracksByLevel, AttrLevel, c.Level[0]
		return d
	}
	return d
}

// GeoHashPrefix selects tracks whose geohash starts with prefix.
func GeoHashPrefix(prefix string, limit int) Descriptor {
	return Descriptor{
		Index:          TracksByGeoHash,
		KeyAttribute:   AttrGeoHash,
		KeyValue:       prefix,
		Prefix:         true,
		ExcludeDeleted: true,
		Limit:          normalizeLimit(limit),
	}
}

// AllTracks is the unconstrained geohash index scan.
func AllTracks(limit int) Descriptor {
	return Descriptor{
		Index:          TracksByGeoHash,
		KeyAttribute:   AttrIndexPK,
		KeyValue:       AllTracksPK,
		ExcludeDeleted: true,
		Limit:          normalizeLimit(limit),
	}
}

// ByOwner selects every track of username.
func ByOwner(username string, limit int) Descriptor {
	return Descriptor{
		Index:          TracksByUser,
		KeyAttribute:   AttrUsername,
		KeyValue:       username,
		ExcludeDeleted: true,
		Limit:          normalizeLimit(limit),
	}
}

func first(conds []filter.Condition, k filter.Key) (filter.Condition, bool) {
	for _, c := range conds {
		if c.Has(k) {
			return c, true
		}
	}
	return filter.Condition{}, false
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

package track

import (
	"github.com/rikitraki/trackapi/internal/db"
	"github.com/rikitraki/trackapi/internal/domain/search/plan"
)

// Key layout.
const (
	KeyPrefix = "rikitraki:track:"
	IndexName = "rikitraki:tracks:idx"
)

// buildIndex defines the single FT index that serves every logical index of
// the planner. Region tags are exposed under the planner's attribute name.
func buildIndex() *db.IndexDefinition {
	return db.NewIndex(IndexName).
		Prefix(KeyPrefix).
		Tag(fieldIndexPK).
		TagWithOpts(fieldUsername, "", true).
		Tag(fieldType).
		Tag(fieldLevel).
		TagWithOpts(fieldGeoHash, "", true).Sortable().
		Tag(fieldFav).
		Tag(fieldIsDeleted).
		TagWithOpts(fieldRegionTags, regionSeparator, true).As(plan.AttrRegionTag).
		Text(fieldName).
		NumericSortable(fieldCreatedAt).
		MustBuild()
}

// toIndexQuery maps a planner descriptor onto the physical index.
// Geohash scans come back in geohash order, everything else by creation time.
func toIndexQuery(d plan.Descriptor) *db.IndexQuery {
	q := &db.IndexQuery{
		Index: IndexName,
		Match: db.TagMatch{
			Field:  d.KeyAttribute,
			Value:  d.KeyValue,
			Prefix: d.Prefix,
		},
		SortBy: sortField(d.Index),
		Limit:  d.Limit,
	}
	if d.ExcludeDeleted {
		q.Exclude = []db.TagMatch{{Field: fieldIsDeleted, Value: "true"}}
	}
	return q
}

func sortField(idx plan.Index) string {
	if idx == plan.TracksByGeoHash {
		return fieldGeoHash
	}
	return fieldCreatedAt
}
